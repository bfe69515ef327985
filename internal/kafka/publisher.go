package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

const eventVersion = 1

// Sink is what Publisher writes to; *Producer implements it.
type Sink interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// Publisher wraps payloads in an orders.Envelope keyed by the record id.
type Publisher struct {
	Sink    Sink
	Service string
	Clock   func() time.Time
	// TraceID extracts a request id from ctx; optional.
	TraceID func(ctx context.Context) string
}

func (p *Publisher) Emit(ctx context.Context, eventType, topic string, key int64, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now
	if p.Clock != nil {
		now = p.Clock
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    now().UTC(),
		Producer:      p.Service,
		CorrelationID: strconv.FormatInt(key, 10),
		Payload:       raw,
	}
	if p.TraceID != nil {
		env.TraceID = p.TraceID(ctx)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.Sink.Publish(ctx, topic, orders.PartitionKey(key), b, eventHeaders(eventType, eventVersion)...)
}
