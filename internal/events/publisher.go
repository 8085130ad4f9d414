package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

// Publisher announces placed orders to the rest of the system.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, meta EventMeta, o *order.Order) error
	Close() error
}

// transport is the broker-specific half of a publisher.
type transport interface {
	send(ctx context.Context, routingKey, key string, body []byte) error
	close() error
}

// envelopePublisher assigns sequences, builds envelopes and hands the bytes
// to a transport. Rabbit and Kafka publishers share it.
type envelopePublisher struct {
	seq      Sequencer
	producer string
	tr       transport
	now      func() time.Time
}

func newEnvelopePublisher(seq Sequencer, producer string, tr transport) *envelopePublisher {
	if producer == "" {
		producer = defaultProducer
	}
	if seq == nil {
		seq = NewMemorySequencer()
	}
	return &envelopePublisher{
		seq:      seq,
		producer: producer,
		tr:       tr,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *envelopePublisher) PublishOrderPlaced(ctx context.Context, meta EventMeta, o *order.Order) error {
	seq, err := p.seq.NextSequence(ctx, o.GuestID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env, err := newOrderPlacedEnvelope(meta, seq, p.producer, o, p.now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.tr.send(pubCtx, OrderPlacedRoutingKey, env.PartitionKey, body)
}

func (p *envelopePublisher) Close() error {
	return p.tr.close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderPlaced(context.Context, EventMeta, *order.Order) error { return nil }
func (Noop) Close() error                                                      { return nil }
