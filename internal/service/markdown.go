package service

import (
	"regexp"
	"strings"
)

var (
	mdBoldStars   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdBoldUnder   = regexp.MustCompile(`__(.+?)__`)
	mdItalicStar  = regexp.MustCompile(`\*([^*\n]+?)\*`)
	mdItalicUnder = regexp.MustCompile(`\b_([^_\n]+?)_\b`)
	mdInlineCode  = regexp.MustCompile("`([^`]*)`")
	mdLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdHeader      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBullet      = regexp.MustCompile(`(?m)^\s*[*+-]\s+`)
	mdNumbered    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)

	// Line-start rules for streamed text only fire after an explicit newline,
	// so a fragment such as " 2020. It" keeps its number.
	deltaLineMarkup = regexp.MustCompile(`\n[ \t]*(?:#{1,6}|[*+-]|\d+\.)[ \t]+`)
	finalLineMarkup = regexp.MustCompile(`\n[ \t]*(?:#{1,6}|[*+-])$`)

	// A line tail that may still turn into a header, bullet or list number.
	openLineMarkup = regexp.MustCompile(`^[ \t]*(?:#{1,6}|[*+-]|\d+\.?)?$`)

	speechStrip = strings.NewReplacer("*", "", "`", "")
)

// CleanMarkdown strips markdown formatting so text can be spoken. Link text
// is kept and the target dropped.
func CleanMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = cleanInline(text)
	text = mdHeader.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "")
	text = mdNumbered.ReplaceAllString(text, "")
	return text
}

func cleanInline(text string) string {
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBoldStars.ReplaceAllString(text, "$1")
	text = mdBoldUnder.ReplaceAllString(text, "$1")
	text = mdItalicStar.ReplaceAllString(text, "$1")
	text = mdItalicUnder.ReplaceAllString(text, "$1")
	return mdInlineCode.ReplaceAllString(text, "$1")
}

// maxHeld bounds how much text waits for a closing underscore or link.
const maxHeld = 256

// speechCleaner strips markdown from a stream of fragments. Markup split
// across fragments is held back until the next fragment or Flush settles it.
type speechCleaner struct {
	pending   string
	midLine   bool
	afterWord bool
}

// Push adds a fragment and returns the text that is safe to speak.
func (c *speechCleaner) Push(fragment string) string {
	c.pending += fragment
	cut := c.settled()
	out := c.pending[:cut]
	c.pending = c.pending[cut:]
	return c.clean(out, false)
}

// Flush returns everything still held back.
func (c *speechCleaner) Flush() string {
	out := c.pending
	c.pending = ""
	return c.clean(out, true)
}

// settled returns the length of the pending prefix whose markup is decided.
func (c *speechCleaner) settled() int {
	p := c.pending
	cut := len(p)

	lineBegin := strings.LastIndexByte(p, '\n') + 1
	if lineBegin > 0 || !c.midLine {
		if openLineMarkup.MatchString(p[lineBegin:]) {
			cut = lineBegin
		}
	}

	held := len(p)
	if i := openLink(p); i >= 0 {
		held = i
	}
	if i := openUnderscore(p, c.afterWord); i >= 0 && i < held {
		held = i
	}
	if len(p)-held <= maxHeld && held < cut {
		cut = held
	}
	return cut
}

func (c *speechCleaner) clean(raw string, final bool) string {
	if raw == "" {
		return ""
	}
	text := raw
	if !c.midLine {
		text = "\n" + text
	}
	text = deltaLineMarkup.ReplaceAllString(text, "\n")
	if final {
		text = finalLineMarkup.ReplaceAllString(text, "\n")
	}
	if !c.midLine {
		text = text[1:]
	}

	last := raw[len(raw)-1]
	c.midLine = last != '\n'
	c.afterWord = isWordByte(last)

	return speechStrip.Replace(cleanInline(text))
}

// openLink returns the index of a trailing "[" whose link is not closed yet,
// or -1.
func openLink(p string) int {
	i := strings.LastIndexByte(p, '[')
	if i < 0 {
		return -1
	}
	rest := p[i:]
	end := strings.IndexByte(rest, ']')
	switch {
	case end < 0, end == len(rest)-1:
		return i
	case rest[end+1] != '(':
		return -1
	case !strings.Contains(rest[end:], ")"):
		return i
	}
	return -1
}

// openUnderscore returns the index of an emphasis underscore run with no
// closing run after it, or -1. Runs inside words are not emphasis.
func openUnderscore(p string, afterWord bool) int {
	for i := 0; i < len(p); i++ {
		if p[i] != '_' {
			continue
		}
		prevWord := afterWord
		if i > 0 {
			prevWord = isWordByte(p[i-1])
		}
		n := 1
		for i+n < len(p) && p[i+n] == '_' {
			n++
		}
		after := i + n
		if prevWord {
			i = after - 1
			continue
		}
		if after == len(p) {
			return i
		}
		if p[after] == ' ' || p[after] == '\n' {
			i = after - 1
			continue
		}
		closing := strings.Index(p[after:], strings.Repeat("_", n))
		if closing < 0 {
			return i
		}
		i = after + closing + n - 1
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
