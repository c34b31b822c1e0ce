package notifications

import (
	"context"

	"github.com/stockflow/stockflow/internal/domain"
	"github.com/stockflow/stockflow/internal/messaging"
)

// Topic carries notification fan-out events from the API service to the
// notifier, which persists them.
const Topic = "notification.requested"

// KafkaSink hands notification events to Kafka. Callers treat delivery as
// fire-and-forget: publish errors are theirs to log, never to propagate.
type KafkaSink struct {
	producer *messaging.Producer
}

func NewKafkaSink(producer *messaging.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Notify(ctx context.Context, event domain.NotificationRequested) error {
	return s.producer.Publish(ctx, event.EventID, event)
}
