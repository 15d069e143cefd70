package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/email"
	"github.com/example/ec-orders/internal/events"
	"github.com/example/ec-orders/internal/infrastructure/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sentMail struct {
	kind email.Kind
	mail email.OrderMail
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendOrderMail(kind email.Kind, m email.OrderMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, mail: m})
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

type testEnv struct {
	handler *Handler
	mailer  *fakeMailer
	store   *memstore.Store
	logs    *observer.ObservedLogs
	owner   *user.User
	mug     *product.Product
}

func newTestHandler(t *testing.T, dedup Deduper) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	s := memstore.New()
	owner, err := user.New("Alice", "alice@example.com", "hash", user.RoleClient, now)
	require.NoError(t, err)
	require.NoError(t, s.InsertUser(ctx, owner))
	mug, err := product.New("Mug", "a ceramic mug", 12.5, 10, now)
	require.NoError(t, err)
	require.NoError(t, s.InsertProduct(ctx, mug))

	core, logs := observer.New(zapcore.DebugLevel)
	mailer := &fakeMailer{}
	return &testEnv{
		handler: NewHandler(mailer, s, dedup, zap.New(core)),
		mailer:  mailer,
		store:   s,
		logs:    logs,
		owner:   owner,
		mug:     mug,
	}
}

func (e *testEnv) event(t *testing.T, typ events.Type, items ...order.Item) []byte {
	t.Helper()
	if len(items) == 0 {
		items = []order.Item{{ProductID: e.mug.ID, Quantity: 2}}
	}
	o, err := order.New(e.owner.ID, items, time.Now().UTC())
	require.NoError(t, err)
	raw, err := json.Marshal(events.New(typ, o, time.Now()))
	require.NoError(t, err)
	return raw
}

// ============================================
// Event routing
// ============================================

func TestHandleEvent_SendsOneMailPerLifecycleEvent(t *testing.T) {
	tests := []struct {
		typ  events.Type
		kind email.Kind
	}{
		{events.OrderCreated, email.KindOrderReceived},
		{events.OrderConfirmed, email.KindOrderConfirmed},
		{events.OrderCancelled, email.KindOrderCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			env := newTestHandler(t, nil)

			err := env.handler.HandleEvent(context.Background(), nil, env.event(t, tt.typ))

			require.NoError(t, err)
			require.Len(t, env.mailer.sent, 1)
			got := env.mailer.sent[0]
			assert.Equal(t, tt.kind, got.kind)
			assert.Equal(t, "alice@example.com", got.mail.To)
			assert.Equal(t, "Alice", got.mail.CustomerName)
			assert.Equal(t, []email.OrderItem{{ProductID: env.mug.ID, Name: "Mug", Quantity: 2, Price: 12.5}}, got.mail.Items)
		})
	}
}

func TestHandleEvent_IgnoresUpdatesAndDeletes(t *testing.T) {
	env := newTestHandler(t, nil)

	for _, typ := range []events.Type{events.OrderUpdated, events.OrderDeleted} {
		require.NoError(t, env.handler.HandleEvent(context.Background(), nil, env.event(t, typ)))
	}

	assert.Empty(t, env.mailer.sent)
}

func TestHandleEvent_MalformedPayload(t *testing.T) {
	env := newTestHandler(t, nil)

	err := env.handler.HandleEvent(context.Background(), []byte("k"), []byte("{not json"))

	assert.Error(t, err)
	assert.Empty(t, env.mailer.sent)
	assert.Equal(t, 1, env.logs.FilterMessage("skip malformed event").Len())
}

// ============================================
// Lookups
// ============================================

func TestHandleEvent_DeletedProductFallsBackToID(t *testing.T) {
	env := newTestHandler(t, nil)

	raw := env.event(t, events.OrderCreated, order.Item{ProductID: "gone", Quantity: 1})
	require.NoError(t, env.handler.HandleEvent(context.Background(), nil, raw))

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, []email.OrderItem{{ProductID: "gone", Quantity: 1}}, env.mailer.sent[0].mail.Items)
}

func TestHandleEvent_UnknownOwnerIsSkipped(t *testing.T) {
	env := newTestHandler(t, nil)
	o, err := order.New("nobody", []order.Item{{ProductID: env.mug.ID, Quantity: 1}}, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(events.New(events.OrderCreated, o, time.Now()))
	require.NoError(t, err)

	require.NoError(t, env.handler.HandleEvent(context.Background(), nil, raw))

	assert.Empty(t, env.mailer.sent)
	assert.Equal(t, 1, env.logs.FilterMessage("order owner not found").Len())
}

func TestHandleEvent_MailerFailure(t *testing.T) {
	env := newTestHandler(t, nil)
	env.mailer.err = errors.New("smtp down")

	err := env.handler.HandleEvent(context.Background(), nil, env.event(t, events.OrderCreated))

	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 1, env.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

// ============================================
// Dedup
// ============================================

func TestHandleEvent_DuplicateDeliveryMailsOnce(t *testing.T) {
	env := newTestHandler(t, &fakeDeduper{seen: map[string]bool{}})
	raw := env.event(t, events.OrderConfirmed)

	require.NoError(t, env.handler.HandleEvent(context.Background(), nil, raw))
	require.NoError(t, env.handler.HandleEvent(context.Background(), nil, raw))

	assert.Len(t, env.mailer.sent, 1)
}

func TestHandleEvent_DedupFailureStillSends(t *testing.T) {
	env := newTestHandler(t, &fakeDeduper{err: errors.New("redis down")})

	require.NoError(t, env.handler.HandleEvent(context.Background(), nil, env.event(t, events.OrderCreated)))

	assert.Len(t, env.mailer.sent, 1)
	assert.Equal(t, 1, env.logs.FilterMessage("dedup unavailable").Len())
}
