package chat

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fixmycar/assistant/backend/internal/analysis/intent"
)

const meterName = "github.com/fixmycar/assistant/backend/internal/service/chat"

type metrics struct {
	intents  metric.Int64Counter
	sessions metric.Int64UpDownCounter
}

// newMetrics binds instruments to the global MeterProvider, a no-op unless the
// host process installs one.
func newMetrics() metrics {
	meter := otel.Meter(meterName)

	intents, _ := meter.Int64Counter(
		"chat_intents_total",
		metric.WithDescription("Bot replies by classified intent"),
	)
	sessions, _ := meter.Int64UpDownCounter(
		"chat_sessions_active",
		metric.WithDescription("Open widget conversations"),
	)
	return metrics{intents: intents, sessions: sessions}
}

func (m metrics) recordIntent(ctx context.Context, in intent.Intent) {
	if m.intents == nil {
		return
	}
	m.intents.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", string(in))))
}

func (m metrics) sessionDelta(ctx context.Context, delta int64) {
	if m.sessions == nil {
		return
	}
	m.sessions.Add(ctx, delta)
}
