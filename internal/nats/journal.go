package nats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/model"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/metrics"
)

// Publisher is the part of jetstream.JetStream the journal writes through.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Journal publishes tool invocations, navigation metadata and turn
// completions to JetStream from a single background goroutine. Record never
// blocks; events are dropped when the buffer is full.
type Journal struct {
	pub     Publisher
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	events chan model.JournalEvent
	done   chan struct{}
}

// NewJournal starts a journal that buffers up to size events.
func NewJournal(pub Publisher, size int, log *logger.Logger) *Journal {
	if size <= 0 {
		size = 256
	}
	j := &Journal{
		pub:     pub,
		log:     log,
		timeout: 5 * time.Second,
		now:     time.Now,
		events:  make(chan model.JournalEvent, size),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

// Record queues ev for callID if it is a journaled kind.
func (j *Journal) Record(callID string, ev model.Event) {
	if !journaled(ev) {
		return
	}
	entry := model.JournalEvent{
		ID:         uuid.NewString(),
		CallID:     callID,
		Kind:       ev.Kind,
		ResponseID: ev.ResponseID,
		ToolName:   ev.ToolName,
		Metadata:   ev.Metadata,
		CreatedAt:  j.now().UTC(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.events <- entry:
	default:
		metrics.JournalPublished.WithLabelValues(string(ev.Kind), "dropped").Inc()
	}
}

// Close stops accepting events and waits until the buffer is flushed.
func (j *Journal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.events)
	}
	j.mu.Unlock()
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for entry := range j.events {
		j.publish(entry)
	}
}

func (j *Journal) publish(entry model.JournalEvent) {
	kind := string(entry.Kind)
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.JournalPublished.WithLabelValues(kind, "error").Inc()
		j.log.Error("failed to marshal journal event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err = j.pub.Publish(ctx, EventSubject(entry.CallID, entry.Kind), data, jetstream.WithMsgID(entry.ID))
	if err != nil {
		metrics.JournalPublished.WithLabelValues(kind, "error").Inc()
		j.log.Warn("failed to publish journal event",
			zap.String("call_id", entry.CallID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}
	metrics.JournalPublished.WithLabelValues(kind, "ok").Inc()
}

func journaled(ev model.Event) bool {
	switch ev.Kind {
	case model.EventToolInvocation, model.EventMetadata, model.EventDone:
		return true
	case model.EventTextDelta:
		return ev.EndCall
	}
	return false
}
