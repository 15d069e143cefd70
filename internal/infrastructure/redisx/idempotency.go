package redisx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore maps a client-supplied Idempotency-Key to the order it
// created. Keys are scoped per user.
type IdempotencyStore struct {
	rdb KV
	ttl time.Duration
}

func NewIdempotencyStore(rdb KV) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: TTLIdempotency}
}

// Lookup returns the order id remembered for key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	orderID, err := s.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	return orderID, true, nil
}

// Remember stores orderID under key unless the key is already taken.
func (s *IdempotencyStore) Remember(ctx context.Context, userID, key, orderID string) error {
	if err := s.rdb.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("remember idempotency key: %w", err)
	}
	return nil
}

// MemoryIdempotency is a process-local stand-in for IdempotencyStore. Entries
// never expire.
type MemoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{keys: make(map[string]string)}
}

func (m *MemoryIdempotency) Lookup(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[fmt.Sprintf(KeyIdemOrderCreate, userID, key)]
	return id, ok, nil
}

func (m *MemoryIdempotency) Remember(_ context.Context, userID, key, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fmt.Sprintf(KeyIdemOrderCreate, userID, key)
	if _, ok := m.keys[k]; !ok {
		m.keys[k] = orderID
	}
	return nil
}
