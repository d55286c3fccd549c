package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// OrderEvent is published whenever an order's status changes, either
// synchronously in a request or when reconciliation confirms a transaction.
type OrderEvent struct {
	OrderID         string    `json:"order_id"`
	Status          string    `json:"status"`
	Action          string    `json:"action,omitempty"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher writes order events to a Kafka topic. A nil Publisher is valid
// and drops all events, so the system runs without a broker configured.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: writer}
}

// PublishOrderStatus emits an event keyed by order id. Failures are logged
// and never propagate: event delivery must not fail the originating request.
func (p *Publisher) PublishOrderStatus(ctx context.Context, event OrderEvent) {
	if p == nil {
		return
	}

	event.OccurredAt = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("order_id", event.OrderID).Msg("failed to encode order event")
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  event.OccurredAt,
	})
	if err != nil {
		log.Error().Err(err).
			Str("order_id", event.OrderID).
			Str("status", event.Status).
			Msg("failed to publish order event")
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
