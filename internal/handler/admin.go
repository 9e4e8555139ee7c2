package handler

import (
	"encoding/json"
	"net/http"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/session"
)

// AdminHandler exposes the live connection tables.
type AdminHandler struct {
	calls     *session.Hub
	frontends *session.Hub
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(calls, frontends *session.Hub) *AdminHandler {
	return &AdminHandler{calls: calls, frontends: frontends}
}

// SessionsResponse lists the bound voice calls and frontend clients.
type SessionsResponse struct {
	Calls     []string `json:"calls"`
	Frontends []string `json:"frontends"`
	Total     int      `json:"total"`
}

// Sessions handles GET /admin/sessions
func (h *AdminHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	calls := h.calls.IDs()
	frontends := h.frontends.IDs()
	writeJSON(w, http.StatusOK, SessionsResponse{
		Calls:     calls,
		Frontends: frontends,
		Total:     len(calls) + len(frontends),
	})
}

// BroadcastResponse reports how many frontends accepted a broadcast.
type BroadcastResponse struct {
	Sent int `json:"sent"`
}

// Broadcast handles POST /admin/broadcast. The body must be a JSON object
// and is forwarded unchanged to every connected frontend.
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}
	writeJSON(w, http.StatusOK, BroadcastResponse{Sent: h.frontends.Broadcast(data)})
}
