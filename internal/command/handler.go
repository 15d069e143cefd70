// Package command runs every state-changing operation: the order workflow,
// catalog management and account creation. Each operation is one store
// transaction; order events are published after commit.
package command

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/events"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/example/ec-orders/internal/command"

// UpdateMode selects how UpdateOrder treats the order state machine.
type UpdateMode string

const (
	// UpdateValidated routes status changes through confirm/cancel and
	// re-reserves stock when items change.
	UpdateValidated UpdateMode = "validated"
	// UpdateOverride replaces items and status without touching stock.
	UpdateOverride UpdateMode = "override"
)

// IdempotencyStore remembers which order a client-supplied key created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, userID, key, orderID string) error
}

type Options struct {
	UpdateMode    UpdateMode
	DeleteRestock bool
	// MaxRetries bounds how often a transaction failing with
	// apperr.TransactionFailure is re-run.
	MaxRetries int
	// RetryInterval is the first backoff delay between retries.
	RetryInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.UpdateMode == "" {
		o.UpdateMode = UpdateValidated
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 20 * time.Millisecond
	}
	return o
}

type Handler struct {
	store       store.Store
	publisher   events.Publisher
	idempotency IdempotencyStore
	logger      *zap.Logger
	tracer      trace.Tracer
	opts        Options
	now         func() time.Time
}

// NewHandler wires the workflow. publisher and idempotency may be nil.
func NewHandler(s store.Store, publisher events.Publisher, idempotency IdempotencyStore, logger *zap.Logger, opts Options) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:       s,
		publisher:   publisher,
		idempotency: idempotency,
		logger:      logger.Named("command"),
		tracer:      otel.Tracer(tracerName),
		opts:        opts.withDefaults(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// inTx runs fn in a store transaction, re-running it while the store
// reports a transaction failure and retries remain. fn must not keep state
// across attempts.
func (h *Handler) inTx(ctx context.Context, fn store.TxFunc) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.opts.RetryInterval
	eb.MaxInterval = 50 * h.opts.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(h.opts.MaxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := h.store.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !apperr.Retryable(err) {
			return backoff.Permanent(err)
		}
		h.logger.Warn("transaction aborted", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, policy)
}

func (h *Handler) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return h.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish ends span and logs the outcome of op.
func (h *Handler) finish(span trace.Span, op string, err error, fields ...zap.Field) {
	defer span.End()
	if err == nil {
		h.logger.Info(op, fields...)
		return
	}

	kind := apperr.KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	span.SetAttributes(attribute.String("error.kind", kind.String()))

	fields = append(fields, zap.String("kind", kind.String()), zap.Error(err))
	if kind == apperr.Internal {
		h.logger.Error(op+" failed", fields...)
		return
	}
	h.logger.Warn(op+" rejected", fields...)
}

// publish emits an order event. Failures are logged; the change is already committed.
func (h *Handler) publish(ctx context.Context, t events.Type, o *order.Order) {
	env := events.New(t, o, h.now())
	if err := h.publisher.Publish(ctx, o.ID, env); err != nil {
		h.logger.Warn("publish order event",
			zap.String("type", string(t)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}
