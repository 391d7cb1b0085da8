package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/fixmycar/assistant/backend/internal/logger"
)

// Publisher sends envelopes to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// NoopPublisher discards every envelope. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Envelope) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }

// ConnectionOptions controls the broker dial loop.
type ConnectionOptions struct {
	URL           string
	Exchange      string
	RetryAttempts int
	Delay         time.Duration
	Logger        zerolog.Logger
}

// MaxDelay caps the backoff between dial attempts.
const MaxDelay = 60 * time.Second

// DialWithRetry tries to connect to RabbitMQ with exponential backoff.
// It respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, cfg ConnectionOptions) (*amqp091.Connection, error) {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp091.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				cfg.Logger.Info().Int("attempt", i).Msg("rabbit connected")
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := backoff(cfg.Delay, i)
		cfg.Logger.Warn().
			Int("attempt", i).
			Dur("sleep", sleep).
			Err(err).
			Msg("rabbit dial failed")

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func backoff(base time.Duration, attempt int) time.Duration {
	sleep := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if sleep > MaxDelay || sleep < 0 {
		sleep = MaxDelay
	}
	return sleep
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      zerolog.Logger
}

// NewRabbitPublisher dials the broker and declares a durable topic exchange.
func NewRabbitPublisher(ctx context.Context, cfg ConnectionOptions) (Publisher, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("exchange name is required")
	}

	conn, err := DialWithRetry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &rmqPublisher{
		conn:     conn,
		exchange: cfg.Exchange,
		log:      logger.Component(cfg.Logger, "publisher"),
	}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := msgID
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msgID,
			CorrelationId: cid,
			Timestamp:     msg.Meta.Time,
			Type:          msg.Meta.Type,
			Body:          body,
		},
	)
	if err != nil {
		return err
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker nacked message %s", msgID)
	}

	r.log.Debug().Str("key", key).Str("exchange", r.exchange).Msg("published")
	return nil
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}
