package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Hey, I'm Bill. How can I help you?", p.BeginSentence)
	assert.Equal(t, "Hello", p.EmptyTranscript)
	assert.Equal(t, "(Now the user has not responded in a while, you would say:)", p.ReminderCue)
	assert.Contains(t, p.Refusal, "I can only share information about my background")
	assert.Contains(t, p.Guardrail.AllowKeywords, "project")
	assert.Contains(t, p.Guardrail.BlockKeywords, "ignore all previous")
	assert.NotEmpty(t, p.VoiceDirective)
	assert.NotEmpty(t, p.TextDirective)
}

func TestParseMissingFields(t *testing.T) {
	_, err := Parse([]byte("name: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin_sentence")

	_, err = Parse([]byte("name: [unterminated"))
	assert.Error(t, err)
}
