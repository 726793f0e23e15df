package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
)

// Publisher sends events as JSON messages keyed by entity id. The writer is
// asynchronous, so Publish only fails on encoding errors; delivery errors
// are reported through the completion callback.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, onDeliveryError func(topic string, err error)) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			Async:                  true,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err == nil || onDeliveryError == nil {
					return
				}
				for _, m := range messages {
					onDeliveryError(m.Topic, err)
				}
			},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(
		ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: data,
		},
	)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
