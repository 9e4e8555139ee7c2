package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
)

const (
	// StreamName is the name of the turn event stream.
	StreamName = "PERSONA"

	// SubjectPrefix is the prefix for all turn event subjects.
	SubjectPrefix = "persona"
)

// streamCreator is the part of jetstream.JetStream used to provision the stream.
type streamCreator interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js streamCreator
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream creates the turn event stream unless it already exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	_, err := m.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = m.js.CreateStream(ctx, StreamConfig())
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// StreamConfig is the configuration the turn event stream is created with.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Voice and chat turn events",
	}
}

// EventSubject returns the subject for one call's event of the given kind.
func EventSubject(callID string, kind model.EventKind) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, subjectToken(callID), subjectToken(string(kind)))
}

// CallFilter returns the filter subject for every event of a call.
func CallFilter(callID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, subjectToken(callID))
}

// subjectToken makes s safe to use as one subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
