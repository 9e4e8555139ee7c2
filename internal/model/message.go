package model

// Role is the speaker of an utterance.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Utterance is one line of the conversation transcript.
type Utterance struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// InteractionType is the kind of inbound transport event.
type InteractionType string

const (
	InteractionCallDetails      InteractionType = "call_details"
	InteractionPingPong         InteractionType = "ping_pong"
	InteractionUpdateOnly       InteractionType = "update_only"
	InteractionResponseRequired InteractionType = "response_required"
	InteractionReminderRequired InteractionType = "reminder_required"
)

// NeedsResponse reports whether the interaction asks the agent to speak.
func (t InteractionType) NeedsResponse() bool {
	return t == InteractionResponseRequired || t == InteractionReminderRequired
}

// Mode is the output channel a turn is rendered for.
type Mode string

const (
	ModeVoice Mode = "voice"
	ModeText  Mode = "text"
)

// Turn is one request for a response. It is built per inbound event and
// never mutated afterwards.
type Turn struct {
	Transcript []Utterance
	ResponseID int
	Kind       InteractionType
	Mode       Mode
}

// LatestUserText returns the content of the most recent user utterance.
func (t Turn) LatestUserText() string {
	for i := len(t.Transcript) - 1; i >= 0; i-- {
		if t.Transcript[i].Role == RoleUser {
			return t.Transcript[i].Content
		}
	}
	return ""
}
