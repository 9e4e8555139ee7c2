package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

func serve(ctx context.Context, id string, conn *fakeConn, hub *Hub) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ServeFrontend(ctx, id, conn, hub, Config{}, logger.Nop())
	}()
	return done
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frontend did not close")
	}
}

func TestServeFrontend_ReceivesNavigation(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	done := serve(context.Background(), "call-1", conn, hub)

	eventually(t, func() bool { return hub.Count() == 1 })
	require.NoError(t, hub.SendTo("call-1", []byte(`{"type":"navigation","page":"personal"}`)))

	frames := conn.waitFrames(t, 1)
	assert.Equal(t, "navigation", frames[0]["type"])

	conn.hangup()
	waitClosed(t, done)
	assert.Equal(t, 0, hub.Count())
}

func TestServeFrontend_NewerConnectionReplacesOlder(t *testing.T) {
	hub := NewHub()
	first := newFakeConn()
	firstDone := serve(context.Background(), "call-1", first, hub)
	eventually(t, func() bool { return hub.Count() == 1 })

	second := newFakeConn()
	secondDone := serve(context.Background(), "call-1", second, hub)

	waitClosed(t, firstDone)
	eventually(t, func() bool { return hub.Count() == 1 })

	require.NoError(t, hub.SendTo("call-1", []byte(`{"page":"education"}`)))
	second.waitFrames(t, 1)
	assert.Empty(t, first.frames(t))

	second.hangup()
	waitClosed(t, secondDone)
}

func TestServeFrontend_ContextCancel(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	done := serve(ctx, "call-9", conn, hub)
	eventually(t, func() bool { return hub.Count() == 1 })

	cancel()
	waitClosed(t, done)
	assert.Equal(t, 0, hub.Count())
}
