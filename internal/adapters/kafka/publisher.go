// Package kafka publishes settlement lifecycle events for downstream
// consumers (reconciliation tooling, analytics). Publishing is best-effort:
// the coordinator never fails a settlement over a broker outage.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/rideway-co/marketplace-api/internal/ports/out/events"
)

const (
	TopicSettlementCompleted = "settlement_completed"
	TopicSettlementStuck     = "settlement_stuck"
)

type Publisher struct {
	completed *kafka.Writer
	stuck     *kafka.Writer
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		completed: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicSettlementCompleted,
			Balancer: &kafka.LeastBytes{},
		},
		stuck: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicSettlementStuck,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) SettlementCompleted(ctx context.Context, ev events.SettlementEvent) error {
	return publish(ctx, p.completed, ev)
}

func (p *Publisher) SettlementStuck(ctx context.Context, ev events.SettlementEvent) error {
	return publish(ctx, p.stuck, ev)
}

func (p *Publisher) Close() error {
	if err := p.completed.Close(); err != nil {
		_ = p.stuck.Close()
		return err
	}
	return p.stuck.Close()
}

// publish keys messages by attempt so all events for one settlement land in
// the same partition, in order.
func publish(ctx context.Context, w *kafka.Writer, ev events.SettlementEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Key),
		Value: data,
	})
}
