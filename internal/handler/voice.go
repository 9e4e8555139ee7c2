package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/middleware"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/session"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

// SocketHandler serves the voice provider and frontend websockets.
type SocketHandler struct {
	responder session.Responder
	calls     *session.Hub
	frontends *session.Hub
	journal   session.Journal
	cfg       session.Config
	upgrader  websocket.Upgrader
	logger    *logger.Logger
}

// NewSocketHandler creates a socket handler. Voice calls are tracked in
// calls and navigation is pushed to the matching client in frontends.
// journal may be nil.
func NewSocketHandler(
	responder session.Responder,
	calls *session.Hub,
	frontends *session.Hub,
	journal session.Journal,
	cfg session.Config,
	allowedOrigins []string,
	log *logger.Logger,
) *SocketHandler {
	return &SocketHandler{
		responder: responder,
		calls:     calls,
		frontends: frontends,
		journal:   journal,
		cfg:       cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     CheckOrigin(allowedOrigins),
		},
		logger: log,
	}
}

// Voice handles GET /{ws_path}/{call_id}
func (h *SocketHandler) Voice(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "call_id")
	if err := middleware.ValidateID(callID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("voice websocket upgrade failed", zap.String("call_id", callID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	unregister := h.calls.Register(callID, session.Handle{Cancel: cancel})
	defer unregister()

	opts := []session.Option{session.WithNavigator(h.frontends)}
	if h.journal != nil {
		opts = append(opts, session.WithJournal(h.journal))
	}

	sess := session.New(callID, conn, h.responder, h.cfg, h.logger, opts...)
	if err := sess.Run(ctx); err != nil {
		h.logger.Warn("voice session ended with error", zap.String("call_id", callID), zap.Error(err))
	}
}

// Frontend handles GET /frontend/{client_id}
func (h *SocketHandler) Frontend(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if err := middleware.ValidateID(clientID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("frontend websocket upgrade failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	session.ServeFrontend(r.Context(), clientID, conn, h.frontends, h.cfg, h.logger)
}
