package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/logger"
	chatservice "github.com/fixmycar/assistant/backend/internal/service/chat"
)

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher turns completed chat turns into envelopes and publishes them on a
// background worker so the conversation never waits on the broker.
type Dispatcher struct {
	publisher Publisher
	producer  string
	queue     chan chatservice.Turn
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// DispatcherOptions configures a Dispatcher. Zero values pick defaults.
type DispatcherOptions struct {
	Producer       string
	QueueSize      int
	PublishTimeout time.Duration
	Now            func() time.Time
	Logger         zerolog.Logger
}

// NewDispatcher creates a dispatcher; call Run to start publishing.
func NewDispatcher(publisher Publisher, opts DispatcherOptions) *Dispatcher {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		publisher: publisher,
		producer:  opts.Producer,
		queue:     make(chan chatservice.Turn, opts.QueueSize),
		timeout:   opts.PublishTimeout,
		now:       opts.Now,
		log:       logger.Component(opts.Logger, "dispatcher"),
		done:      make(chan struct{}),
	}
}

// Enqueue queues a turn without blocking. A full queue drops the turn.
func (d *Dispatcher) Enqueue(turn chatservice.Turn) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- turn:
	default:
		d.log.Warn().Str("session_id", turn.SessionID).Msg("turn queue full, dropping event")
	}
}

// Run publishes queued turns until ctx ends, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.closeOnce.Do(func() { close(d.done) })
			d.drain()
			return
		case turn := <-d.queue:
			d.publish(turn)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case turn := <-d.queue:
			d.publish(turn)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(turn chatservice.Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	envelope := d.Envelope(turn)
	if err := d.publisher.Publish(ctx, TurnEventType, envelope); err != nil {
		d.log.Error().Err(err).Str("session_id", turn.SessionID).Msg("publish turn failed")
	}
}

// Envelope builds the chat.turn.v1 envelope for turn.
func (d *Dispatcher) Envelope(turn chatservice.Turn) Envelope {
	sessionID := turn.SessionID
	meta := Meta{
		CorrelationID: &sessionID,
		ID:            uuid.NewString(),
		Time:          d.now().UTC(),
		Type:          TurnEventType,
	}
	if d.producer != "" {
		producer := d.producer
		meta.Producer = &producer
	}

	return Envelope{
		Meta: meta,
		Data: TurnPayload{
			SessionID: turn.SessionID,
			Intent:    string(turn.Decision.Intent),
			UserText:  turn.UserText,
			Reply:     turn.Decision.Reply,
			RepliedAt: turn.Reply.Timestamp,
		},
	}
}
