package events

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

func placedOrder() *order.Order {
	return &order.Order{
		ReceiptID:     "RCP-1",
		GuestID:       "guest-7",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Status:        order.StatusCompleted,
		CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Total:         decimal.RequireFromString("20.5"),
		Lines: []order.Line{
			{ProductID: "p1", Name: "Mug", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.25")},
		},
	}
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func TestOrderPlacedEnvelope(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC)
	env, err := newOrderPlacedEnvelope(EventMeta{CorrelationID: "corr-1"}, 3, "storefront-service", placedOrder(), now)
	require.NoError(t, err)

	require.NoError(t, env.Validate(EventTypeOrderPlaced, 1))
	assert.Equal(t, "guest-7", env.PartitionKey)
	assert.Equal(t, int64(3), env.Sequence)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.Equal(t, "RCP-1", env.CausationID)

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "20.50", payload.Total)
	require.Len(t, payload.Lines, 1)
	assert.Equal(t, "10.25", payload.Lines[0].PriceAtPurchase)

	env.EventName = "Other"
	assert.Error(t, env.Validate(EventTypeOrderPlaced, 1))
}

func TestRabbitTransportPublishes(t *testing.T) {
	ch := &fakeChannel{}
	p := newEnvelopePublisher(NewMemorySequencer(), "", rabbitTransport{ch: ch})

	require.NoError(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, placedOrder()))
	require.NoError(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, placedOrder()))

	assert.Equal(t, EventsExchange, ch.exchange)
	assert.Equal(t, OrderPlacedRoutingKey, ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
	assert.Equal(t, int64(2), env.Sequence)
	assert.Equal(t, defaultProducer, env.Producer)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitTransportError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newEnvelopePublisher(nil, "storefront", rabbitTransport{ch: ch})
	require.ErrorIs(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, placedOrder()), amqp.ErrClosed)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaTransportKeysByGuest(t *testing.T) {
	w := &fakeWriter{}
	p := newEnvelopePublisher(NewMemorySequencer(), "", kafkaTransport{w: w})

	require.NoError(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, placedOrder()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "guest-7", string(w.msgs[0].Key))
	assert.Equal(t, OrderPlacedRoutingKey, string(w.msgs[0].Headers[0].Value))
}

type failingSequencer struct{}

func (failingSequencer) NextSequence(context.Context, string) (int64, error) {
	return 0, errors.New("db down")
}

func TestPublishFailsWhenSequenceFails(t *testing.T) {
	w := &fakeWriter{}
	p := newEnvelopePublisher(failingSequencer{}, "", kafkaTransport{w: w})
	require.Error(t, p.PublishOrderPlaced(context.Background(), EventMeta{}, placedOrder()))
	assert.Empty(t, w.msgs)
}

func TestPostgresSequencer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO event_sequence`)).
		WithArgs("guest-7").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(4)))

	seq, err := NewPostgresSequencer(mock).NextSequence(context.Background(), "guest-7")
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySequencerPerPartition(t *testing.T) {
	s := NewMemorySequencer()
	ctx := context.Background()
	a1, _ := s.NextSequence(ctx, "a")
	a2, _ := s.NextSequence(ctx, "a")
	b1, _ := s.NextSequence(ctx, "b")
	assert.Equal(t, []int64{1, 2, 1}, []int64{a1, a2, b1})
}
