// Package service drives persona turns: guardrail, generation, tool calls
// and the ordered event stream handed to the transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/guardrail"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/llm"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/prompts"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/tracing"
)

// EmitFunc receives each event of a turn in order. A non-nil error stops
// the turn; Respond returns it unchanged.
type EmitFunc func(model.Event) error

// Guardrail vets the latest user utterance. Check returns an error wrapping
// guardrail.ErrBlocked for a jailbreak verdict.
type Guardrail interface {
	Check(ctx context.Context, text string) error
}

// Config configures a ResponseService.
type Config struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxToolRounds int
	Debug         bool
}

// ResponseService turns a Turn into an ordered event stream.
type ResponseService struct {
	client   llm.StreamingClient
	guard    Guardrail
	registry *tools.Registry
	persona  *prompts.Persona
	cfg      Config
	logger   *logger.Logger
	tracer   trace.Tracer
}

// NewResponseService creates a new response service.
func NewResponseService(
	client llm.StreamingClient,
	guard Guardrail,
	registry *tools.Registry,
	persona *prompts.Persona,
	cfg Config,
	log *logger.Logger,
) *ResponseService {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 3
	}
	return &ResponseService{
		client:   client,
		guard:    guard,
		registry: registry,
		persona:  persona,
		cfg:      cfg,
		logger:   log,
		tracer:   tracing.Tracer("portfolio/service"),
	}
}

// BeginMessage is the greeting spoken when a call connects.
func (s *ResponseService) BeginMessage() model.Event {
	return model.TextDelta(0, CleanMarkdown(s.persona.BeginSentence), true, false)
}

// emitError marks a failure of the downstream consumer, as opposed to a
// failure of generation.
type emitError struct{ err error }

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

type turnState struct {
	sess     tools.Session
	turn     model.Turn
	emit     EmitFunc
	log      *logger.Logger
	messages []llm.ChatMessage
	speech   speechCleaner
	ended    bool
}

func (t *turnState) send(ev model.Event) error {
	if err := t.emit(ev); err != nil {
		return &emitError{err: err}
	}
	return nil
}

// Respond runs one turn to completion. Every turn that is not abandoned by
// emit ends with exactly one terminal text-delta. The returned error is
// non-nil only when emit failed.
func (s *ResponseService) Respond(ctx context.Context, sess tools.Session, turn model.Turn, emit EmitFunc) error {
	start := time.Now()
	log := s.logger.WithCall(sess.CallID, string(turn.Mode)).WithResponse(turn.ResponseID)

	ctx, span := s.tracer.Start(ctx, "persona.turn", trace.WithAttributes(
		attribute.String("call_id", sess.CallID),
		attribute.Int("response_id", turn.ResponseID),
		attribute.String("mode", string(turn.Mode)),
		attribute.String("interaction", string(turn.Kind)),
	))
	defer span.End()

	st := &turnState{sess: sess, turn: turn, emit: emit, log: log}
	outcome, err := s.respond(ctx, st)

	var ee *emitError
	if errors.As(err, &ee) {
		outcome = "abandoned"
		err = ee.err
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	metrics.RecordTurn(string(turn.Mode), outcome, time.Since(start).Seconds())
	log.Debug("turn finished", zap.String("outcome", outcome), zap.Duration("duration", time.Since(start)))
	return err
}

func (s *ResponseService) respond(ctx context.Context, st *turnState) (string, error) {
	transcript := effectiveTranscript(st.turn, s.persona)

	if text := latestUserText(transcript); text != "" {
		err := s.guard.Check(ctx, text)
		switch {
		case errors.Is(err, guardrail.ErrBlocked):
			st.log.Info("guardrail blocked input", zap.Error(err))
			return "blocked", s.refuse(st)
		case err != nil:
			st.log.Warn("guardrail failed, refusing", zap.Error(err))
			return "blocked", s.refuse(st)
		}
	}

	st.messages = buildMessages(st.turn, transcript, s.persona)

	err := s.generate(ctx, st)
	var ee *emitError
	switch {
	case errors.As(err, &ee):
		return "abandoned", err
	case err != nil:
		st.log.Error("generation failed", zap.Error(err))
		return "failed", st.send(model.TextDelta(st.turn.ResponseID, "", true, false))
	case st.ended:
		return "ended", nil
	}
	return "completed", st.send(model.TextDelta(st.turn.ResponseID, "", true, false))
}

func (s *ResponseService) refuse(st *turnState) error {
	refusal := s.persona.Refusal
	if st.turn.Mode == model.ModeVoice {
		refusal = CleanMarkdown(refusal)
	}
	return st.send(model.TextDelta(st.turn.ResponseID, refusal, true, false))
}

// generate streams model rounds until the model answers without tools, a
// tool ends the call, or the round budget is spent.
func (s *ResponseService) generate(ctx context.Context, st *turnState) error {
	for round := 0; ; round++ {
		req := &llm.CompletionRequest{
			Model:       s.cfg.Model,
			Messages:    st.messages,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		}
		if round < s.cfg.MaxToolRounds {
			req.Tools = s.registry.Definitions()
		}

		calls, err := s.streamRound(ctx, st, req)
		if err != nil || st.ended || len(calls) == 0 {
			return err
		}
	}
}

type executedCall struct {
	call   llm.ToolCall
	result string
}

// streamRound consumes one model stream, running tool calls as soon as
// their arguments are complete. It returns the calls executed this round.
func (s *ResponseService) streamRound(ctx context.Context, st *turnState, req *llm.CompletionRequest) ([]executedCall, error) {
	stream, err := s.client.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open model stream: %w", err)
	}
	defer stream.Close()

	acc := newToolAccumulator()
	var text strings.Builder
	var executed []executedCall

	run := func(call llm.ToolCall) error {
		result, err := s.runTool(ctx, st, call)
		if err != nil {
			return err
		}
		executed = append(executed, executedCall{call: call, result: result})
		return nil
	}

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read model stream: %w", err)
		}
		if s.cfg.Debug {
			st.log.Debug("model chunk",
				zap.String("text", chunk.Text),
				zap.Int("tool_deltas", len(chunk.ToolCalls)),
				zap.String("finish_reason", chunk.FinishReason),
			)
		}

		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			if err := s.sendText(st, chunk.Text); err != nil {
				return nil, err
			}
		}
		for _, d := range chunk.ToolCalls {
			call, ok := acc.Add(d)
			if !ok {
				continue
			}
			if err := run(call); err != nil {
				return nil, err
			}
			if st.ended {
				return executed, nil
			}
		}
	}

	if err := s.flushText(st); err != nil {
		return nil, err
	}

	ready, dropped := acc.Flush()
	for _, call := range dropped {
		st.log.Warn("dropping tool call with unparseable arguments",
			zap.String("tool", call.Name),
			zap.String("tool_call_id", call.ID),
			zap.String("arguments", call.Arguments),
		)
	}
	for _, call := range ready {
		if err := run(call); err != nil {
			return nil, err
		}
		if st.ended {
			return executed, nil
		}
	}

	if len(executed) > 0 {
		assistant := llm.ChatMessage{Role: llm.RoleAssistant, Content: text.String()}
		for _, ec := range executed {
			assistant.ToolCalls = append(assistant.ToolCalls, ec.call)
		}
		st.messages = append(st.messages, assistant)
		for _, ec := range executed {
			st.messages = append(st.messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    ec.result,
				ToolCallID: ec.call.ID,
			})
		}
	}
	return executed, nil
}

func (s *ResponseService) sendText(st *turnState, text string) error {
	if st.turn.Mode == model.ModeVoice {
		text = st.speech.Push(text)
		if text == "" {
			return nil
		}
	}
	return st.send(model.TextDelta(st.turn.ResponseID, text, false, false))
}

// flushText sends voice text held back by the markdown cleaner.
func (s *ResponseService) flushText(st *turnState) error {
	if st.turn.Mode != model.ModeVoice {
		return nil
	}
	if text := st.speech.Flush(); text != "" {
		return st.send(model.TextDelta(st.turn.ResponseID, text, false, false))
	}
	return nil
}

// runTool emits the lead-in, the invocation, the result and any paired
// metadata, in that order. An end-of-call tool closes the turn.
func (s *ResponseService) runTool(ctx context.Context, st *turnState, call llm.ToolCall) (string, error) {
	id := st.turn.ResponseID

	if err := s.flushText(st); err != nil {
		return "", err
	}
	if leadIn := tools.LeadIn(call.Arguments); leadIn != "" {
		if st.turn.Mode == model.ModeText {
			leadIn += "\n\n"
		} else {
			leadIn += " "
		}
		if err := s.sendText(st, leadIn); err != nil {
			return "", err
		}
		if err := s.flushText(st); err != nil {
			return "", err
		}
	}
	if err := st.send(model.ToolInvocation(id, call.ID, call.Name, call.Arguments)); err != nil {
		return "", err
	}
	if !s.registry.Has(call.Name) {
		st.log.Warn("model called an unregistered tool", zap.String("tool", call.Name), zap.Strings("registered", s.registry.Names()))
	}

	ctx, span := s.tracer.Start(ctx, "persona.tool", trace.WithAttributes(
		attribute.String("tool", call.Name),
		attribute.String("tool_call_id", call.ID),
	))
	res := s.registry.Execute(ctx, st.sess, call.Name, call.Arguments)
	span.End()

	st.log.Info("tool executed",
		zap.String("tool", call.Name),
		zap.String("tool_call_id", call.ID),
		zap.Bool("metadata", res.Metadata != nil),
		zap.Bool("end_call", res.EndCall),
	)

	if err := st.send(model.ToolResult(id, call.ID, res.Content)); err != nil {
		return "", err
	}
	if res.Metadata != nil {
		if err := st.send(model.MetadataEvent(id, res.Metadata)); err != nil {
			return "", err
		}
	}
	if res.EndCall {
		st.ended = true
		if err := st.send(model.TextDelta(id, "", true, true)); err != nil {
			return "", err
		}
	}
	return res.Content, nil
}
