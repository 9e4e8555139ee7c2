package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/prompts"
)

func testPersona(t *testing.T) *prompts.Persona {
	t.Helper()
	p, err := prompts.Default()
	require.NoError(t, err)
	return p
}

func TestBuildMessagesAnnotatesLatestUser(t *testing.T) {
	persona := testPersona(t)
	turn := model.Turn{
		Transcript: []model.Utterance{
			{Role: model.RoleAgent, Content: "Hey, I'm Bill."},
			{Role: model.RoleUser, Content: "What did you study?"},
			{Role: model.RoleAgent, Content: "Computer science."},
			{Role: model.RoleUser, Content: "Where?"},
		},
		Kind: model.InteractionResponseRequired,
		Mode: model.ModeVoice,
	}

	msgs := buildMessages(turn, turn.Transcript, persona)
	require.Len(t, msgs, 5)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, persona.System, msgs[0].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "What did you study?", msgs[2].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "Where?\n\n"+persona.VoiceDirective, msgs[4].Content)
}

func TestBuildMessagesReminder(t *testing.T) {
	persona := testPersona(t)
	turn := model.Turn{
		Transcript: []model.Utterance{{Role: model.RoleUser, Content: "hmm"}},
		Kind:       model.InteractionReminderRequired,
		Mode:       model.ModeText,
	}

	msgs := buildMessages(turn, turn.Transcript, persona)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hmm\n\n"+persona.TextDirective, msgs[1].Content)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: persona.ReminderCue}, msgs[2])
}

func TestEffectiveTranscript(t *testing.T) {
	persona := testPersona(t)

	got := effectiveTranscript(model.Turn{}, persona)
	assert.Equal(t, []model.Utterance{{Role: model.RoleUser, Content: "Hello"}}, got)

	turn := model.Turn{Transcript: []model.Utterance{{Role: model.RoleUser, Content: "hi"}}}
	assert.Equal(t, turn.Transcript, effectiveTranscript(turn, persona))
}
