package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-orders/internal/infrastructure/store"
)

// MockStore wraps a real store.Store and lets tests inject commit failures
// and inspect how many transactions ran.
type MockStore struct {
	store.Store

	mu         sync.Mutex
	commitErrs []error

	// For tracking calls in tests
	TxCalls int
	// BeforeCommit, if set, runs after the transaction body succeeds and
	// aborts the transaction when it returns an error.
	BeforeCommit func(ctx context.Context, s store.Session) error
}

// NewMockStore wraps inner.
func NewMockStore(inner store.Store) *MockStore {
	return &MockStore{Store: inner}
}

// FailCommits queues errs; each following transaction runs its body, then
// aborts with the next queued error instead of committing.
func (m *MockStore) FailCommits(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitErrs = append(m.commitErrs, errs...)
}

// WithTransaction records the call and applies any queued failure.
func (m *MockStore) WithTransaction(ctx context.Context, fn store.TxFunc) error {
	m.mu.Lock()
	m.TxCalls++
	var injected error
	if len(m.commitErrs) > 0 {
		injected = m.commitErrs[0]
		m.commitErrs = m.commitErrs[1:]
	}
	beforeCommit := m.BeforeCommit
	m.mu.Unlock()

	return m.Store.WithTransaction(ctx, func(ctx context.Context, s store.Session) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		if beforeCommit != nil {
			if err := beforeCommit(ctx, s); err != nil {
				return err
			}
		}
		return injected
	})
}

// Calls returns the number of transactions started so far.
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TxCalls
}

// Reset clears queued failures and recorded calls
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitErrs = nil
	m.TxCalls = 0
	m.BeforeCommit = nil
}
