package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/guardrail"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/prompts"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/search"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

type fakeStream struct {
	chunks []llm.Chunk
	err    error
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (llm.Chunk, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return llm.Chunk{}, s.err
	}
	return llm.Chunk{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// scriptedClient plays one scripted stream per model round.
type scriptedClient struct {
	mu        sync.Mutex
	rounds    [][]llm.Chunk
	roundErrs map[int]error
	openErr   error
	requests  []llm.CompletionRequest
	streams   []*fakeStream
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (c *scriptedClient) Stream(_ context.Context, req *llm.CompletionRequest) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := *req
	snapshot.Messages = append([]llm.ChatMessage(nil), req.Messages...)
	c.requests = append(c.requests, snapshot)

	if c.openErr != nil {
		return nil, c.openErr
	}
	i := len(c.requests) - 1
	s := &fakeStream{err: c.roundErrs[i]}
	if i < len(c.rounds) {
		s.chunks = c.rounds[i]
	}
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *scriptedClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type countingCompleter struct {
	calls   atomic.Int32
	content string
	err     error
}

func (c *countingCompleter) Name() string { return "guardrail-fake" }

func (c *countingCompleter) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content}, nil
}

type fakeSearcher struct{}

func (fakeSearcher) SearchProjects(context.Context, string, int) ([]model.ProjectRecord, error) {
	return []model.ProjectRecord{{ID: "gitpt", Name: "GitPT", Summary: "Summarizes repos", Score: 0.9}}, nil
}

func (fakeSearcher) GetProject(_ context.Context, id string) (*model.ProjectRecord, error) {
	if id != "gitpt" {
		return nil, search.ErrNotFound
	}
	return &model.ProjectRecord{ID: "gitpt", Name: "GitPT", Summary: "Summarizes repos", Details: "Won Student Life Hack"}, nil
}

func (fakeSearcher) FindSimilar(context.Context, string, int) ([]model.ProjectRecord, error) {
	return nil, nil
}

type harness struct {
	svc       *ResponseService
	client    *scriptedClient
	completer *countingCompleter
	persona   *prompts.Persona
}

func newHarness(t *testing.T, client *scriptedClient, completer *countingCompleter, opts ...func(*Config)) *harness {
	t.Helper()
	persona, err := prompts.Default()
	require.NoError(t, err)

	if completer == nil {
		completer = &countingCompleter{err: errors.New("guardrail model must not be called")}
	}
	guard := guardrail.New(completer, guardrail.Config{
		System:        persona.Guardrail.System,
		AllowKeywords: persona.Guardrail.AllowKeywords,
		BlockKeywords: persona.Guardrail.BlockKeywords,
	}, logger.Nop())

	cfg := Config{Model: "test-model", MaxToolRounds: 3}
	for _, o := range opts {
		o(&cfg)
	}
	registry := tools.NewRegistry(tools.Default(fakeSearcher{}, 3))
	svc := NewResponseService(client, guard, registry, persona, cfg, logger.Nop())
	return &harness{svc: svc, client: client, completer: completer, persona: persona}
}

type recorder struct {
	events []model.Event
}

func (r *recorder) emit(ev model.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []model.EventKind {
	out := make([]model.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) invocations() []model.Event {
	var out []model.Event
	for _, ev := range r.events {
		if ev.Kind == model.EventToolInvocation {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) terminalCount() int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == model.EventTextDelta && ev.ContentComplete {
			n++
		}
	}
	return n
}

func textChunk(s string) llm.Chunk {
	return llm.Chunk{Text: s}
}

func toolChunk(index int, id, name, args string) llm.Chunk {
	return llm.Chunk{ToolCalls: []llm.ToolCallDelta{{Index: index, ID: id, Name: name, Arguments: args}}}
}

func userTurn(mode model.Mode, id int, text string) model.Turn {
	return model.Turn{
		Transcript: []model.Utterance{{Role: model.RoleUser, Content: text}},
		ResponseID: id,
		Kind:       model.InteractionResponseRequired,
		Mode:       mode,
	}
}

var voiceSession = tools.Session{CallID: "call-1", Mode: model.ModeVoice}
