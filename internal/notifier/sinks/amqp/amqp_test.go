package amqp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcred/internal/notifier"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestSink_Deliver(t *testing.T) {
	ch := &fakeChannel{}
	sink := &Sink{ch: ch, exchange: "travelcred.events"}
	id := uuid.New()

	err := sink.Deliver(context.Background(), notifier.Event{
		Seq:       5,
		EventID:   id,
		Type:      notifier.VisaRejected,
		EntityID:  2,
		Timestamp: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	p := ch.sent[0]
	assert.Equal(t, "travelcred.events", p.exchange)
	assert.Equal(t, "VisaRejected", p.key)
	assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)
	assert.Equal(t, id.String(), p.msg.MessageId)
	assert.Equal(t, int64(5), p.msg.Headers["seq"])
	assert.Equal(t, "visa/2", p.msg.Headers["key"])

	require.NoError(t, sink.Close())
	assert.True(t, ch.closed)
}
