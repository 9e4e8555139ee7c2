package service

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
)

type toolCallBuffer struct {
	id      string
	name    string
	args    strings.Builder
	emitted bool
}

// toolAccumulator reassembles streamed tool-call fragments. A call is
// released exactly once, as soon as its buffered arguments form a complete
// JSON object.
type toolAccumulator struct {
	calls map[int]*toolCallBuffer
	// replaced holds unreleased buffers whose index was reused by a new call.
	replaced []*toolCallBuffer
}

func newToolAccumulator() *toolAccumulator {
	return &toolAccumulator{calls: make(map[int]*toolCallBuffer)}
}

// Add buffers one fragment and returns the call if it just became complete.
func (a *toolAccumulator) Add(d llm.ToolCallDelta) (llm.ToolCall, bool) {
	buf, ok := a.calls[d.Index]
	if ok && d.ID != "" && buf.id != "" && d.ID != buf.id {
		// Some providers reuse an index for the next call.
		if !buf.emitted {
			a.replaced = append(a.replaced, buf)
		}
		ok = false
	}
	if !ok {
		buf = &toolCallBuffer{}
		a.calls[d.Index] = buf
	}
	if buf.emitted {
		return llm.ToolCall{}, false
	}
	if buf.id == "" && d.ID != "" {
		buf.id = d.ID
	}
	if buf.name == "" && d.Name != "" {
		buf.name = d.Name
	}
	buf.args.WriteString(d.Arguments)

	if buf.name == "" || !isCompleteObject(buf.args.String()) {
		return llm.ToolCall{}, false
	}
	buf.emitted = true
	return buf.call(buf.args.String()), true
}

// Flush is called at stream end. Calls with no argument text are released
// with an empty object; calls whose text never parsed are returned as dropped.
func (a *toolAccumulator) Flush() (ready, dropped []llm.ToolCall) {
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	pending := append([]*toolCallBuffer(nil), a.replaced...)
	a.replaced = nil
	for _, i := range indexes {
		pending = append(pending, a.calls[i])
	}

	for _, buf := range pending {
		if buf.emitted {
			continue
		}
		buf.emitted = true
		raw := strings.TrimSpace(buf.args.String())
		switch {
		case buf.name != "" && raw == "":
			ready = append(ready, buf.call("{}"))
		default:
			dropped = append(dropped, buf.call(raw))
		}
	}
	return ready, dropped
}

func (b *toolCallBuffer) call(args string) llm.ToolCall {
	if b.id == "" {
		b.id = "call_" + uuid.NewString()
	}
	return llm.ToolCall{ID: b.id, Name: b.name, Arguments: args}
}

func isCompleteObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var v map[string]any
	return json.Unmarshal([]byte(s), &v) == nil
}
