package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := New(NotFound, "order not found")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", sentinel, NotFound},
		{"fmt wrapped", fmt.Errorf("loading: %w", sentinel), NotFound},
		{"reclassified", Wrap(Conflict, "duplicate", sentinel), Conflict},
		{"plain error", errors.New("boom"), Internal},
		{"nil", nil, Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap_KeepsSentinelIdentity(t *testing.T) {
	sentinel := New(InsufficientStock, "insufficient stock")
	err := Wrap(InsufficientStock, "insufficient stock for product p-1: requested 6, available 5", sentinel)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "insufficient stock for product p-1: requested 6, available 5", err.Error())
}

func TestError_MessageIncludesInfrastructureCause(t *testing.T) {
	err := Wrap(TransactionFailure, "transaction aborted", errors.New("write conflict"))

	assert.Equal(t, "transaction aborted: write conflict", err.Error())
	assert.Equal(t, "transaction aborted", err.PublicMessage())
}

func TestPublicMessage_HidesInternal(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("dial tcp: refused")))
	assert.Equal(t, "internal server error", PublicMessage(Wrap(Internal, "store", errors.New("x"))))
	assert.Equal(t, "order not found", PublicMessage(fmt.Errorf("ctx: %w", New(NotFound, "order not found"))))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(TransactionFailure, "conflict")))
	assert.False(t, Retryable(New(InsufficientStock, "out of stock")))
	assert.False(t, Retryable(nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "invalid_transition", InvalidTransition.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
