package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Topics emitted by this service.
const (
	TopicOrderCreated   = "order.created"
	TopicReceiptCreated = "receipt.created"
)

// LogNotifier writes an audit line for every emitted event.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		RawJSON("payload", ev.Payload).
		Time("occurred_at", ev.OccurredAt).
		Msg("domain_event")
	return nil
}

// MetricsNotifier counts emitted events per topic.
type MetricsNotifier struct {
	Counter *prometheus.CounterVec
}

// Notify implements Notifier.
func (n MetricsNotifier) Notify(_ context.Context, ev Event) error {
	if n.Counter == nil {
		return nil
	}
	n.Counter.WithLabelValues(ev.Topic).Inc()
	return nil
}
