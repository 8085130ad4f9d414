package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaTransport struct {
	w messageWriter
}

func (t kafkaTransport) send(ctx context.Context, routingKey, key string, body []byte) error {
	return t.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "routing-key", Value: []byte(routingKey)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

func (t kafkaTransport) close() error { return t.w.Close() }

// NewKafkaPublisher writes envelopes to topic, keyed by guest id so one
// guest's orders land on one partition.
func NewKafkaPublisher(brokers []string, topic string, seq Sequencer, producer string) Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newEnvelopePublisher(seq, producer, kafkaTransport{w: w})
}
