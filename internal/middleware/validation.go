package middleware

import (
	"errors"
	"unicode/utf8"
)

const (
	maxContentLength = 100000
	maxIDLength      = 128
)

// ValidateMessageContent validates one chat message body.
func ValidateMessageContent(content string) error {
	if len(content) > maxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateRole validates a chat message role.
func ValidateRole(role string) error {
	switch role {
	case "user", "assistant", "agent":
		return nil
	}
	return errors.New("role must be user or assistant")
}

// ValidateID validates a call or client id taken from the URL path.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New("id exceeds maximum length")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return errors.New("id may only contain letters, digits, '-' and '_'")
		}
	}
	return nil
}
