package model

import (
	"encoding/json"
	"fmt"
)

// InboundEvent is a decoded frame from the voice provider.
type InboundEvent struct {
	InteractionType InteractionType `json:"interaction_type"`
	ResponseID      int             `json:"response_id,omitempty"`
	Transcript      []Utterance     `json:"transcript,omitempty"`
	Timestamp       int64           `json:"timestamp,omitempty"`
	Call            json.RawMessage `json:"call,omitempty"`
}

// DecodeInbound parses one inbound frame.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var ev InboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return InboundEvent{}, fmt.Errorf("decode inbound event: %w", err)
	}
	if ev.InteractionType == "" {
		return InboundEvent{}, fmt.Errorf("decode inbound event: missing interaction_type")
	}
	return ev, nil
}

// Turn converts the frame into an immutable turn rendered for mode.
func (e InboundEvent) Turn(mode Mode) Turn {
	transcript := make([]Utterance, len(e.Transcript))
	copy(transcript, e.Transcript)
	return Turn{
		Transcript: transcript,
		ResponseID: e.ResponseID,
		Kind:       e.InteractionType,
		Mode:       mode,
	}
}

type responseFrame struct {
	ResponseType    string `json:"response_type"`
	ResponseID      int    `json:"response_id"`
	Content         string `json:"content"`
	ContentComplete bool   `json:"content_complete"`
	EndCall         bool   `json:"end_call"`
}

type toolInvocationFrame struct {
	ResponseType string `json:"response_type"`
	ToolCallID   string `json:"tool_call_id"`
	Name         string `json:"name"`
	Arguments    string `json:"arguments"`
}

type toolResultFrame struct {
	ResponseType string `json:"response_type"`
	ToolCallID   string `json:"tool_call_id"`
	Content      string `json:"content"`
}

type metadataFrame struct {
	ResponseType string         `json:"response_type"`
	Metadata     map[string]any `json:"metadata"`
}

type configFrame struct {
	ResponseType string        `json:"response_type"`
	ResponseID   int           `json:"response_id"`
	Config       SessionConfig `json:"config"`
}

type pingPongFrame struct {
	ResponseType string `json:"response_type"`
	Timestamp    int64  `json:"timestamp"`
}

// EncodeOutbound renders an event as a voice provider frame.
func EncodeOutbound(e Event) ([]byte, error) {
	var frame any
	switch e.Kind {
	case EventTextDelta:
		frame = responseFrame{
			ResponseType:    "response",
			ResponseID:      e.ResponseID,
			Content:         e.Content,
			ContentComplete: e.ContentComplete,
			EndCall:         e.EndCall,
		}
	case EventToolInvocation:
		frame = toolInvocationFrame{
			ResponseType: "tool_call_invocation",
			ToolCallID:   e.ToolCallID,
			Name:         e.ToolName,
			Arguments:    e.Arguments,
		}
	case EventToolResult:
		frame = toolResultFrame{
			ResponseType: "tool_call_result",
			ToolCallID:   e.ToolCallID,
			Content:      e.Content,
		}
	case EventMetadata:
		frame = metadataFrame{
			ResponseType: "metadata",
			Metadata:     e.Metadata,
		}
	case EventConfig:
		cfg := SessionConfig{}
		if e.Config != nil {
			cfg = *e.Config
		}
		frame = configFrame{
			ResponseType: "config",
			ResponseID:   e.ResponseID,
			Config:       cfg,
		}
	case EventDone:
		return nil, fmt.Errorf("encode outbound: %s has no voice frame", e.Kind)
	default:
		return nil, fmt.Errorf("encode outbound: unknown event kind %q", e.Kind)
	}
	return json.Marshal(frame)
}

// EncodePingPong renders the keepalive echo.
func EncodePingPong(timestamp int64) ([]byte, error) {
	return json.Marshal(pingPongFrame{ResponseType: "ping_pong", Timestamp: timestamp})
}

// ChatEvent is one server-sent event of the text chat stream.
type ChatEvent struct {
	Type     string         `json:"type"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chat event types.
const (
	ChatContent  = "content"
	ChatMetadata = "metadata"
	ChatError    = "error"
	ChatDone     = "done"
)
