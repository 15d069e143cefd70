package redisx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV answers Get and SetNX from a map, recording TTLs.
type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	switch v, ok := f.data[key]; {
	case f.err != nil:
		cmd.SetErr(f.err)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(v)
	}
	return cmd
}

func (f *fakeKV) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key, value)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if _, ok := f.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	cmd.SetVal(true)
	return cmd
}

// ============================================
// IdempotencyStore Tests
// ============================================

func TestIdempotencyStore_RememberThenLookup(t *testing.T) {
	kv := newFakeKV()
	s := NewIdempotencyStore(kv)
	ctx := context.Background()

	_, ok, err := s.Lookup(ctx, "user-1", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remember(ctx, "user-1", "abc", "order-1"))
	require.NoError(t, s.Remember(ctx, "user-1", "abc", "order-2"))

	id, ok, err := s.Lookup(ctx, "user-1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id, "first writer wins")
	assert.Equal(t, 24*time.Hour, kv.ttls["idem:order:create:user-1:abc"])
}

func TestIdempotencyStore_ScopedPerUser(t *testing.T) {
	s := NewIdempotencyStore(newFakeKV())
	ctx := context.Background()
	require.NoError(t, s.Remember(ctx, "user-1", "abc", "order-1"))

	_, ok, err := s.Lookup(ctx, "user-2", "abc")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotencyStore_Errors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	s := NewIdempotencyStore(kv)

	_, _, err := s.Lookup(context.Background(), "u", "k")
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, s.Remember(context.Background(), "u", "k", "o"))
}

func TestMemoryIdempotency(t *testing.T) {
	m := NewMemoryIdempotency()
	ctx := context.Background()

	require.NoError(t, m.Remember(ctx, "user-1", "abc", "order-1"))
	require.NoError(t, m.Remember(ctx, "user-1", "abc", "order-2"))

	id, ok, err := m.Lookup(ctx, "user-1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "order-1", id)
}

// ============================================
// Deduper Tests
// ============================================

func TestDeduper_FirstSeen(t *testing.T) {
	kv := newFakeKV()
	d := NewDeduper(kv, "order-notifier")
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.Contains(t, kv.data, "dedup:order-notifier:evt-1")
	assert.Equal(t, 48*time.Hour, kv.ttls["dedup:order-notifier:evt-1"])
}
