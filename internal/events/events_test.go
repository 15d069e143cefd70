package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New("user-1", []order.Item{{ProductID: "p1", Quantity: 2}}, time.Now())
	require.NoError(t, err)
	return o
}

func TestNew_SnapshotsOrder(t *testing.T) {
	o := testOrder(t)
	now := time.Date(2025, 3, 22, 21, 0, 0, 0, time.FixedZone("CLT", -3*3600))

	e := New(OrderCreated, o, now)
	o.Items[0].Quantity = 99

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, OrderCreated, e.Type)
	assert.Equal(t, o.ID, e.OrderID)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.Equal(t, 2, e.Data.Items[0].Quantity, "snapshot must not alias the order")
}

func TestDecode(t *testing.T) {
	e := New(OrderCancelled, testOrder(t), time.Now())
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	got, err := Decode(raw)

	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, got.Type)
	assert.Equal(t, e.OrderID, got.OrderID)
	assert.Equal(t, order.StatusPending, got.Data.Status)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"OrderCreated"}`))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	o := testOrder(t)

	require.NoError(t, r.Publish(ctx, o.ID, New(OrderCreated, o, time.Now())))
	require.NoError(t, r.Publish(ctx, o.ID, "ignored"))
	r.PublishErr = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, o.ID, New(OrderConfirmed, o, time.Now())))

	assert.Equal(t, []Type{OrderCreated, OrderConfirmed}, r.Types())
	assert.Len(t, r.Events(), 2)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "k", nil))
}
