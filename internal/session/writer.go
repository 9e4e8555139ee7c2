package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type outboundFrame struct {
	responseID int
	// tracked frames belong to a response and are dropped once superseded.
	tracked bool
	payload []byte
}

// outboundWriter is the only goroutine writing data frames to the socket.
// The staleness check and the write happen under mu, the same lock that
// guards the session's latest response id.
type outboundWriter struct {
	ws      wsWriter
	ctx     context.Context
	cfg     Config
	frames  <-chan outboundFrame
	mu      *sync.Mutex
	isStale func(responseID int) bool
	dropped func()
}

func (w *outboundWriter) Run() error {
	pingInterval := w.cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	writeTimeout := w.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	// Closing on every exit path unblocks the reader.
	defer w.ws.Close()

	for {
		select {
		case <-w.ctx.Done():
			_ = w.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			return nil
		case <-pingTicker.C:
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		case frame := <-w.frames:
			if err := w.writeFrame(frame, writeTimeout); err != nil {
				return err
			}
		}
	}
}

func (w *outboundWriter) writeFrame(frame outboundFrame, writeTimeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if frame.tracked && w.isStale(frame.responseID) {
		if w.dropped != nil {
			w.dropped()
		}
		return nil
	}
	if err := w.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.ws.WriteMessage(websocket.TextMessage, frame.payload)
}
