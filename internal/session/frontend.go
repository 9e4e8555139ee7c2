package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

// ServeFrontend binds conn to id in hub and keeps it open until the client
// leaves, ctx is canceled, or a newer connection claims the same id.
// Inbound messages are read and discarded.
func ServeFrontend(ctx context.Context, id string, conn Conn, hub *Hub, cfg Config, log *logger.Logger) {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	log = log.With(zap.String("client_id", id))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeMu sync.Mutex
	send := func(payload []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	unregister := hub.Register(id, Handle{Cancel: cancel, Send: send})
	defer unregister()
	log.Info("frontend connected")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		writeMu.Unlock()
	case <-readDone:
	}
	_ = conn.Close()
	<-readDone
	log.Info("frontend disconnected")
}
