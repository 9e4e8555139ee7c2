package service

import (
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/prompts"
)

// effectiveTranscript substitutes a greeting for an empty transcript so a
// turn always has a user message to answer.
func effectiveTranscript(turn model.Turn, persona *prompts.Persona) []model.Utterance {
	if len(turn.Transcript) > 0 {
		return turn.Transcript
	}
	return []model.Utterance{{Role: model.RoleUser, Content: persona.EmptyTranscript}}
}

// buildMessages assembles the model-facing conversation: persona
// instructions, the transcript with the latest user message carrying the
// channel's format directive, and the silence cue for reminders.
func buildMessages(turn model.Turn, transcript []model.Utterance, persona *prompts.Persona) []llm.ChatMessage {
	directive := persona.VoiceDirective
	if turn.Mode == model.ModeText {
		directive = persona.TextDirective
	}

	lastUser := -1
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == model.RoleUser {
			lastUser = i
			break
		}
	}

	messages := make([]llm.ChatMessage, 0, len(transcript)+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: persona.System})
	for i, u := range transcript {
		role := llm.RoleUser
		if u.Role == model.RoleAgent {
			role = llm.RoleAssistant
		}
		content := u.Content
		if i == lastUser && directive != "" {
			content += "\n\n" + directive
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: content})
	}

	if turn.Kind == model.InteractionReminderRequired {
		messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: persona.ReminderCue})
	}
	return messages
}

// latestUserText returns the newest user utterance of transcript.
func latestUserText(transcript []model.Utterance) string {
	return model.Turn{Transcript: transcript}.LatestUserText()
}
