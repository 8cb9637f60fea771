package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-fulfillment/internal/kafka"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, c Confirmation) error
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// KafkaNotifier hands confirmations to the notifier worker. Delivery happens
// later; a nil error only means the event was queued.
type KafkaNotifier struct {
	Pub     Publisher
	Service string
	Now     func() time.Time
	NewID   func() string
}

func NewKafkaNotifier(pub Publisher, service string) *KafkaNotifier {
	return &KafkaNotifier{
		Pub:     pub,
		Service: service,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   uuid.NewString,
	}
}

func (n *KafkaNotifier) SendOrderConfirmation(ctx context.Context, c Confirmation) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	env := Envelope{
		EventID:       n.NewID(),
		EventType:     EventOrderConfirmationRequested,
		EventVersion:  eventVersion,
		OccurredAt:    n.Now(),
		Producer:      n.Service,
		CorrelationID: c.OrderID,
		Payload:       payload,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return n.Pub.Publish(ctx, PartitionKey(c.OrderID), b,
		kafkax.Header("x-event-type", env.EventType),
		kafkax.Header("x-event-version", strconv.Itoa(eventVersion)),
	)
}
