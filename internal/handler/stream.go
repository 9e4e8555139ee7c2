package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/middleware"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/service"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
)

// Responder produces the events of one turn.
type Responder interface {
	Respond(ctx context.Context, sess tools.Session, turn model.Turn, emit service.EmitFunc) error
}

// Journal records turn events out of band.
type Journal interface {
	Record(callID string, ev model.Event)
}

// ChatMessage is one message of a text chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages *[]ChatMessage `json:"messages"`
}

// StreamHandler serves the text chat SSE endpoint.
type StreamHandler struct {
	responder Responder
	journal   Journal
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler. journal may be nil.
func NewStreamHandler(responder Responder, journal Journal, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		responder: responder,
		journal:   journal,
		logger:    log,
	}
}

// Chat handles POST /chat.
// The response is a stream of `data: <json>` events ending with a done event.
func (h *StreamHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Messages == nil {
		writeError(w, http.StatusUnprocessableEntity, "messages is required")
		return
	}

	transcript := make([]model.Utterance, 0, len(*req.Messages))
	for i, msg := range *req.Messages {
		if err := middleware.ValidateRole(msg.Role); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("messages[%d]: %s", i, err))
			return
		}
		if err := middleware.ValidateMessageContent(msg.Content); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("messages[%d]: %s", i, err))
			return
		}
		role := model.RoleUser
		if msg.Role != "user" {
			role = model.RoleAgent
		}
		transcript = append(transcript, model.Utterance{Role: role, Content: msg.Content})
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	ctx := r.Context()
	sessionID := "text-" + uuid.NewString()[:8]
	log := h.logger.WithCall(sessionID, string(model.ModeText))
	sess := tools.Session{CallID: sessionID, Mode: model.ModeText}
	turn := model.Turn{
		Transcript: transcript,
		Kind:       model.InteractionResponseRequired,
		Mode:       model.ModeText,
	}

	err := h.responder.Respond(ctx, sess, turn, func(ev model.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.journal != nil {
			h.journal.Record(sessionID, ev)
		}
		chunk, ok := chatEvent(ev)
		if !ok {
			return nil
		}
		return sendSSEEvent(w, flusher, chunk)
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("SSE client disconnected")
			return
		}
		log.Warn("chat turn failed", zap.Error(err))
		_ = sendSSEEvent(w, flusher, model.ChatEvent{Type: model.ChatError, Content: err.Error()})
		return
	}

	done := model.Done(turn.ResponseID)
	if h.journal != nil {
		h.journal.Record(sessionID, done)
	}
	if chunk, ok := chatEvent(done); ok {
		_ = sendSSEEvent(w, flusher, chunk)
	}
}

// chatEvent maps a turn event onto the text chat stream. Tool announcements
// and the empty terminal delta have no chat representation.
func chatEvent(ev model.Event) (model.ChatEvent, bool) {
	switch ev.Kind {
	case model.EventTextDelta:
		if ev.Content == "" {
			return model.ChatEvent{}, false
		}
		return model.ChatEvent{Type: model.ChatContent, Content: ev.Content}, true
	case model.EventMetadata:
		return model.ChatEvent{Type: model.ChatMetadata, Metadata: ev.Metadata}, true
	case model.EventDone:
		return model.ChatEvent{Type: model.ChatDone}, true
	}
	return model.ChatEvent{}, false
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
