package model

import (
	"time"
)

// EventKind tags the variant held by an Event.
type EventKind string

const (
	EventTextDelta      EventKind = "text-delta"
	EventToolInvocation EventKind = "tool-invocation"
	EventToolResult     EventKind = "tool-result"
	EventMetadata       EventKind = "metadata"
	EventConfig         EventKind = "config"
	EventDone           EventKind = "done"
)

// Event is one item of a turn's ordered output. Only the fields that belong
// to Kind are meaningful.
type Event struct {
	Kind       EventKind
	ResponseID int

	// text-delta
	Content         string
	ContentComplete bool
	EndCall         bool

	// tool-invocation, tool-result
	ToolCallID string
	ToolName   string
	Arguments  string

	// metadata
	Metadata map[string]any

	// config
	Config *SessionConfig
}

// SessionConfig is sent to the voice provider when a call connects.
type SessionConfig struct {
	AutoReconnect bool `json:"auto_reconnect"`
	CallDetails   bool `json:"call_details"`
}

// TextDelta builds a text-delta event.
func TextDelta(responseID int, content string, complete, endCall bool) Event {
	return Event{
		Kind:            EventTextDelta,
		ResponseID:      responseID,
		Content:         content,
		ContentComplete: complete,
		EndCall:         endCall,
	}
}

// ToolInvocation builds a tool-invocation event.
func ToolInvocation(responseID int, callID, name, arguments string) Event {
	return Event{
		Kind:       EventToolInvocation,
		ResponseID: responseID,
		ToolCallID: callID,
		ToolName:   name,
		Arguments:  arguments,
	}
}

// ToolResult builds a tool-result event.
func ToolResult(responseID int, callID, content string) Event {
	return Event{
		Kind:       EventToolResult,
		ResponseID: responseID,
		ToolCallID: callID,
		Content:    content,
	}
}

// MetadataEvent builds a side-channel metadata event.
func MetadataEvent(responseID int, metadata map[string]any) Event {
	return Event{
		Kind:       EventMetadata,
		ResponseID: responseID,
		Metadata:   metadata,
	}
}

// ConfigEvent builds the connection config event.
func ConfigEvent(responseID int, cfg SessionConfig) Event {
	return Event{
		Kind:       EventConfig,
		ResponseID: responseID,
		Config:     &cfg,
	}
}

// Done marks a finished turn for consumers that have no terminal frame of
// their own, such as the event journal and the chat stream.
func Done(responseID int) Event {
	return Event{Kind: EventDone, ResponseID: responseID}
}

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || (e.Kind == EventTextDelta && (e.ContentComplete || e.EndCall))
}

// JournalEvent is the record published to the event log for one
// orchestrator event.
type JournalEvent struct {
	ID         string         `json:"id"`
	CallID     string         `json:"call_id"`
	Kind       EventKind      `json:"kind"`
	ResponseID int            `json:"response_id"`
	ToolName   string         `json:"tool_name,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
