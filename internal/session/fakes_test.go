package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/service"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn is an in-memory websocket. Tests push inbound frames with send
// and observe written text frames through frames.
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
	notify  chan struct{}
	control []int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
		notify:  make(chan struct{}, 256),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return 0, nil, errConnClosed
		}
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	c.mu.Lock()
	c.written = append(c.written, append([]byte(nil), data...))
	c.mu.Unlock()
	c.notify <- struct{}{}
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	c.control = append(c.control, messageType)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// hangup simulates the client going away.
func (c *fakeConn) hangup() {
	close(c.inbound)
}

func (c *fakeConn) send(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.inbound <- data
}

func (c *fakeConn) frames(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.written))
	for _, raw := range c.written {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

// waitFrames blocks until at least n frames were written.
func (c *fakeConn) waitFrames(t *testing.T, n int) []map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		have := len(c.written)
		c.mu.Unlock()
		if have >= n {
			return c.frames(t)
		}
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, have %d", n, have)
		}
	}
}

// fakeResponder runs a per-response script.
type fakeResponder struct {
	begin  model.Event
	script func(ctx context.Context, turn model.Turn, emit service.EmitFunc) error

	mu      sync.Mutex
	errs    map[int]error
	ctxDone map[int]bool
}

func newFakeResponder(script func(ctx context.Context, turn model.Turn, emit service.EmitFunc) error) *fakeResponder {
	return &fakeResponder{
		begin:   model.TextDelta(0, "Hey there", true, false),
		script:  script,
		errs:    make(map[int]error),
		ctxDone: make(map[int]bool),
	}
}

func (r *fakeResponder) BeginMessage() model.Event { return r.begin }

func (r *fakeResponder) Respond(ctx context.Context, _ tools.Session, turn model.Turn, emit service.EmitFunc) error {
	err := r.script(ctx, turn, emit)
	r.mu.Lock()
	r.errs[turn.ResponseID] = err
	r.ctxDone[turn.ResponseID] = ctx.Err() != nil
	r.mu.Unlock()
	return err
}

func (r *fakeResponder) finished(id int) (done bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err, done = r.errs[id]
	return done, err
}

func (r *fakeResponder) sawCancel(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctxDone[id]
}

type recordingNavigator struct {
	mu       sync.Mutex
	payloads map[string][]string
}

func (n *recordingNavigator) SendTo(id string, payload []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.payloads == nil {
		n.payloads = make(map[string][]string)
	}
	n.payloads[id] = append(n.payloads[id], string(payload))
	return nil
}

type recordingJournal struct {
	mu    sync.Mutex
	kinds []model.EventKind
}

func (j *recordingJournal) Record(_ string, ev model.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.kinds = append(j.kinds, ev.Kind)
}

func turnMsg(id int, text string) map[string]any {
	return map[string]any{
		"interaction_type": "response_required",
		"response_id":      id,
		"transcript":       []map[string]any{{"role": "user", "content": text}},
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
