package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (r *recordingAck) Ack(bool) error {
	r.acked = true
	return nil
}

func (r *recordingAck) Nack(_, requeue bool) error {
	r.nacked = true
	r.requeue = requeue
	return nil
}

func eventBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(events.OrderEvent{Type: events.OrderCreated, OrderID: "o1"})
	require.NoError(t, err)
	return body
}

func TestSettle_AcksHandledMessages(t *testing.T) {
	ack := &recordingAck{}
	var got events.OrderEvent
	settle(context.Background(), eventBody(t), false, 1, ack, func(_ context.Context, ev events.OrderEvent) error {
		got = ev
		return nil
	})
	assert.True(t, ack.acked)
	assert.Equal(t, "o1", got.OrderID)
}

func TestSettle_RequeuesOnce(t *testing.T) {
	failing := func(context.Context, events.OrderEvent) error { return errors.New("smtp down") }

	first := &recordingAck{}
	settle(context.Background(), eventBody(t), false, 1, first, failing)
	assert.True(t, first.nacked)
	assert.True(t, first.requeue)

	second := &recordingAck{}
	settle(context.Background(), eventBody(t), true, 2, second, failing)
	assert.True(t, second.nacked)
	assert.False(t, second.requeue)
}

func TestSettle_DropsMalformed(t *testing.T) {
	ack := &recordingAck{}
	settle(context.Background(), []byte("{"), false, 1, ack, func(context.Context, events.OrderEvent) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}
