package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 22, 21, 0, 0, 0, time.UTC)

func seedProduct(t *testing.T, s *Store, name string, stock int) *product.Product {
	t.Helper()
	p, err := product.New(name, name+" description", 10, stock, testNow)
	require.NoError(t, err)
	require.NoError(t, s.InsertProduct(context.Background(), p))
	return p
}

// ============================================
// Transaction Tests
// ============================================

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Keyboard", 5)

	err := s.WithTransaction(ctx, func(ctx context.Context, sess store.Session) error {
		ok, err := sess.DecrementStockIf(ctx, p.ID, 2)
		require.True(t, ok)
		return err
	})

	require.NoError(t, err)
	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Keyboard", 5)
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context, sess store.Session) error {
		if _, err := sess.DecrementStockIf(ctx, p.ID, 2); err != nil {
			return err
		}
		o, err := order.New("user-1", []order.Item{{ProductID: p.ID, Quantity: 2}}, testNow)
		require.NoError(t, err)
		if err := sess.InsertOrder(ctx, o); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	orders, err := s.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Keyboard", 5)

	assert.Panics(t, func() {
		_ = s.WithTransaction(ctx, func(ctx context.Context, sess store.Session) error {
			_, _ = sess.DecrementStockIf(ctx, p.ID, 5)
			panic("boom")
		})
	})

	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestWithTransaction_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTransaction(ctx, func(context.Context, store.Session) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// ============================================
// Product Tests
// ============================================

func TestDecrementStockIf(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Mouse", 3)

	ok, err := s.DecrementStockIf(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok, "must not go below zero")

	ok, err = s.DecrementStockIf(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DecrementStockIf(ctx, "missing", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.FindProduct(ctx, p.ID)
	assert.Zero(t, got.Stock)
}

func TestIncrementStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Mouse", 3)

	found, err := s.IncrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.IncrementStock(ctx, "missing", 2)
	require.NoError(t, err)
	assert.False(t, found)

	got, _ := s.FindProduct(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestInsertProduct_DuplicateName(t *testing.T) {
	s := New()
	seedProduct(t, s, "Mouse", 3)
	dup, err := product.New("mouse", "another mouse", 1, 1, testNow)
	require.NoError(t, err)

	err = s.InsertProduct(context.Background(), dup)

	assert.ErrorIs(t, err, product.ErrProductExists)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Mouse", 3)
	other := seedProduct(t, s, "Keyboard", 3)

	p.Price = 99
	require.NoError(t, s.UpdateProduct(ctx, p))
	got, _ := s.FindProduct(ctx, p.ID)
	assert.Equal(t, 99.0, got.Price)

	other.Name = "Mouse"
	assert.ErrorIs(t, s.UpdateProduct(ctx, other), product.ErrProductExists)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err := s.FindProduct(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), product.ErrProductNotFound)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}

func TestFindProduct_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := seedProduct(t, s, "Mouse", 3)

	got, _ := s.FindProduct(ctx, p.ID)
	got.Stock = 100

	again, _ := s.FindProduct(ctx, p.ID)
	assert.Equal(t, 3, again.Stock)
}

// ============================================
// Order Tests
// ============================================

func TestOrders_InsertFindListReplaceDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	o1, _ := order.New("user-1", []order.Item{{ProductID: "p1", Quantity: 1}}, testNow)
	o2, _ := order.New("user-2", []order.Item{{ProductID: "p1", Quantity: 2}}, testNow)
	o3, _ := order.New("user-1", []order.Item{{ProductID: "p2", Quantity: 3}}, testNow)
	for _, o := range []*order.Order{o1, o2, o3} {
		require.NoError(t, s.InsertOrder(ctx, o))
	}

	all, err := s.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{o1.ID, o2.ID, o3.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	mine, err := s.ListOrders(ctx, store.OrderFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, o3.ID, mine[1].ID)

	require.NoError(t, o2.Confirm(testNow))
	require.NoError(t, s.ReplaceOrder(ctx, o2))
	got, err := s.FindOrder(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)

	require.NoError(t, s.DeleteOrder(ctx, o2.ID))
	_, err = s.FindOrder(ctx, o2.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, s.ReplaceOrder(ctx, o2), order.ErrOrderNotFound)
	assert.ErrorIs(t, s.DeleteOrder(ctx, o2.ID), order.ErrOrderNotFound)
}

func TestListOrders_EmptyIsNotNil(t *testing.T) {
	orders, err := New().ListOrders(context.Background(), store.OrderFilter{UserID: "nobody"})

	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

// ============================================
// User Tests
// ============================================

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := user.New("Ana", "ana@example.com", "hash", user.RoleClient, testNow)
	require.NoError(t, err)
	require.NoError(t, s.InsertUser(ctx, u))

	byEmail, err := s.FindUserByEmail(ctx, " ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	dup, _ := user.New("Ana Two", "ana@example.com", "hash", user.RoleClient, testNow)
	assert.ErrorIs(t, s.InsertUser(ctx, dup), user.ErrUserExists)

	_, err = s.FindUser(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
