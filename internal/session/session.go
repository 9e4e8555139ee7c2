// Package session runs one duplex voice call: it decodes inbound events,
// dispatches each to its own task and forwards turn events in order,
// dropping those of superseded responses.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/service"
	"github.com/IdkwhatImD0ing/PortfolioV3/internal/tools"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
)

// ErrSuperseded is returned to a turn whose response id is no longer the latest.
var ErrSuperseded = errors.New("session: response superseded")

var errDisconnected = errors.New("session: client disconnected")

// Conn is the websocket surface a session needs. *websocket.Conn satisfies it.
type Conn interface {
	wsWriter
	ReadMessage() (messageType int, p []byte, err error)
}

// Responder produces the events of one turn.
type Responder interface {
	BeginMessage() model.Event
	Respond(ctx context.Context, sess tools.Session, turn model.Turn, emit service.EmitFunc) error
}

// Journal records turn events out of band. Record must not block.
type Journal interface {
	Record(callID string, ev model.Event)
}

// Navigator forwards navigation metadata to the frontend bound to a call.
type Navigator interface {
	SendTo(id string, payload []byte) error
}

// Config configures a Session.
type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	QueueSize    int
}

// Option configures optional session collaborators.
type Option func(*Session)

// WithJournal records every forwarded turn event.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithNavigator mirrors navigation metadata to the call's frontend.
func WithNavigator(n Navigator) Option {
	return func(s *Session) { s.nav = n }
}

// Session owns one voice call connection.
type Session struct {
	id        string
	conn      Conn
	responder Responder
	cfg       Config
	log       *logger.Logger
	journal   Journal
	nav       Navigator

	out chan outboundFrame

	// mu guards latest and serializes the writer's staleness check with
	// updates from the reader.
	mu     sync.Mutex
	latest int

	tasks sync.WaitGroup
}

// New creates a session for call id over conn.
func New(id string, conn Conn, responder Responder, cfg Config, log *logger.Logger, opts ...Option) *Session {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	s := &Session{
		id:        id,
		conn:      conn,
		responder: responder,
		cfg:       cfg,
		log:       log.WithCall(id, string(model.ModeVoice)),
		out:       make(chan outboundFrame, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the call id.
func (s *Session) ID() string {
	return s.id
}

// Run serves the connection until the client disconnects or ctx is
// canceled. Every outstanding task is canceled and awaited before Run
// returns.
func (s *Session) Run(ctx context.Context) error {
	metrics.VoiceSessionsActive.Inc()
	defer metrics.VoiceSessionsActive.Dec()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Info("voice session connected")

	if err := s.sendUntracked(ctx, model.ConfigEvent(1, model.SessionConfig{AutoReconnect: true, CallDetails: true})); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	writer := &outboundWriter{
		ws:      s.conn,
		ctx:     gctx,
		cfg:     s.cfg,
		frames:  s.out,
		mu:      &s.mu,
		isStale: s.isStaleLocked,
		dropped: func() { s.log.Debug("dropped frame of superseded response") },
	}
	g.Go(writer.Run)
	g.Go(func() error { return s.readLoop(gctx) })

	err := g.Wait()
	cancel()
	s.tasks.Wait()

	if errors.Is(err, errDisconnected) || errors.Is(err, context.Canceled) {
		err = nil
	}
	s.log.Info("voice session closed", zap.Error(err))
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errDisconnected, err)
		}

		ev, err := model.DecodeInbound(data)
		if err != nil {
			s.log.Warn("ignoring malformed inbound event", zap.Error(err))
			continue
		}
		s.dispatch(ctx, ev)
	}
}

// dispatch runs on the reader goroutine. It records the latest response id
// synchronously and hands the work to a new task.
func (s *Session) dispatch(ctx context.Context, ev model.InboundEvent) {
	switch ev.InteractionType {
	case model.InteractionUpdateOnly:
		return
	case model.InteractionPingPong:
		s.spawn(ctx, "ping_pong", func(ctx context.Context) {
			data, err := model.EncodePingPong(ev.Timestamp)
			if err != nil {
				s.log.Error("encode ping_pong", zap.Error(err))
				return
			}
			_ = s.enqueue(ctx, outboundFrame{payload: data})
		})
	case model.InteractionCallDetails:
		s.spawn(ctx, "call_details", func(ctx context.Context) {
			if err := s.sendUntracked(ctx, s.responder.BeginMessage()); err != nil {
				s.log.Debug("begin message not sent", zap.Error(err))
			}
		})
	case model.InteractionResponseRequired, model.InteractionReminderRequired:
		s.mu.Lock()
		s.latest = ev.ResponseID
		s.mu.Unlock()

		turn := ev.Turn(model.ModeVoice)
		s.spawn(ctx, string(ev.InteractionType), func(ctx context.Context) {
			s.respond(ctx, turn)
		})
	default:
		s.log.Warn("unknown interaction type", zap.String("interaction_type", string(ev.InteractionType)))
	}
}

func (s *Session) respond(ctx context.Context, turn model.Turn) {
	log := s.log.WithResponse(turn.ResponseID)
	sess := tools.Session{CallID: s.id, Mode: model.ModeVoice}

	err := s.responder.Respond(ctx, sess, turn, func(ev model.Event) error {
		if s.isStale(turn.ResponseID) {
			return ErrSuperseded
		}
		if ev.Kind == model.EventMetadata {
			s.navigate(ev.Metadata)
		}
		if s.journal != nil {
			s.journal.Record(s.id, ev)
		}
		data, err := model.EncodeOutbound(ev)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, outboundFrame{responseID: turn.ResponseID, tracked: true, payload: data})
	})

	switch {
	case err == nil:
		if s.journal != nil {
			s.journal.Record(s.id, model.Done(turn.ResponseID))
		}
	case errors.Is(err, ErrSuperseded):
		metrics.SupersededTurns.Inc()
		log.Debug("turn superseded")
	case err != nil && ctx.Err() == nil:
		log.Warn("turn aborted", zap.Error(err))
	}
}

func (s *Session) navigate(metadata map[string]any) {
	if s.nav == nil {
		return
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return
	}
	if err := s.nav.SendTo(s.id, payload); err != nil && !errors.Is(err, ErrUnknownClient) {
		s.log.Debug("frontend navigation not delivered", zap.Error(err))
	}
}

func (s *Session) spawn(ctx context.Context, name string, fn func(context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("session task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()
		fn(ctx)
	}()
}

func (s *Session) sendUntracked(ctx context.Context, ev model.Event) error {
	data, err := model.EncodeOutbound(ev)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, outboundFrame{payload: data})
}

func (s *Session) enqueue(ctx context.Context, frame outboundFrame) error {
	select {
	case s.out <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) isStale(responseID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isStaleLocked(responseID)
}

func (s *Session) isStaleLocked(responseID int) bool {
	return responseID != s.latest
}

// LatestResponseID returns the most recent response id seen from the client.
func (s *Session) LatestResponseID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
