package command

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ec-orders/internal/authz"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/events"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"github.com/example/ec-orders/internal/inventory"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreateOrder reserves stock for every item and stores a pending order owned
// by actor, all in one transaction. With an idempotency store configured, a
// repeated IdempotencyKey returns the order it created and replayed is true.
func (h *Handler) CreateOrder(ctx context.Context, actor authz.Actor, cmd CreateOrder) (created *order.Order, replayed bool, err error) {
	ctx, span := h.startSpan(ctx, "order.create", attribute.String("user.id", actor.ID))
	defer func() {
		fields := []zap.Field{zap.String("user_id", actor.ID), zap.Bool("replayed", replayed)}
		if created != nil {
			span.SetAttributes(attribute.String("order.id", created.ID))
			fields = append(fields, zap.String("order_id", created.ID))
		}
		h.finish(span, "create order", err, fields...)
	}()

	if err := authz.Authenticated(actor); err != nil {
		return nil, false, err
	}
	if err := order.ValidateItems(cmd.Items); err != nil {
		return nil, false, err
	}

	key := strings.TrimSpace(cmd.IdempotencyKey)
	if key != "" && h.idempotency != nil {
		if prior := h.replay(ctx, actor, key); prior != nil {
			return prior, true, nil
		}
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		o, err := order.New(actor.ID, cmd.Items, h.now())
		if err != nil {
			return err
		}
		if err := inventory.ReserveAll(ctx, s, o.Items); err != nil {
			return err
		}
		if err := s.InsertOrder(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	h.publish(ctx, events.OrderCreated, created)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Remember(ctx, actor.ID, key, created.ID); err != nil {
			h.logger.Warn("remember idempotency key", zap.String("order_id", created.ID), zap.Error(err))
		}
	}
	return created, false, nil
}

// replay returns the order previously created under key, or nil when there
// is none or it can no longer be read.
func (h *Handler) replay(ctx context.Context, actor authz.Actor, key string) *order.Order {
	orderID, ok, err := h.idempotency.Lookup(ctx, actor.ID, key)
	if err != nil {
		h.logger.Warn("lookup idempotency key", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	o, err := h.store.FindOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, order.ErrOrderNotFound) {
			h.logger.Warn("load replayed order", zap.String("order_id", orderID), zap.Error(err))
		}
		return nil
	}
	if o.UserID != actor.ID {
		return nil
	}
	return o
}

// CancelOrder returns the order's quantities to stock and marks it
// Cancelled. Only the owner or an admin may cancel, and only while Pending.
func (h *Handler) CancelOrder(ctx context.Context, actor authz.Actor, cmd CancelOrder) (cancelled *order.Order, err error) {
	ctx, span := h.startSpan(ctx, "order.cancel", attribute.String("order.id", cmd.OrderID))
	defer func() { h.finish(span, "cancel order", err, zap.String("order_id", cmd.OrderID)) }()

	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		o, err := s.FindOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := authz.RequireOrderAccess(actor, o); err != nil {
			return err
		}
		if err := o.Cancel(h.now()); err != nil {
			return err
		}
		if err := inventory.ReleaseAll(ctx, s, o.Items); err != nil {
			return err
		}
		if err := s.ReplaceOrder(ctx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, events.OrderCancelled, cancelled)
	return cancelled, nil
}

// ConfirmOrder marks a pending order Confirmed. Stock is untouched: it was
// reserved at creation. Admin only.
func (h *Handler) ConfirmOrder(ctx context.Context, actor authz.Actor, cmd ConfirmOrder) (confirmed *order.Order, err error) {
	ctx, span := h.startSpan(ctx, "order.confirm", attribute.String("order.id", cmd.OrderID))
	defer func() { h.finish(span, "confirm order", err, zap.String("order_id", cmd.OrderID)) }()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		o, err := s.FindOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := o.Confirm(h.now()); err != nil {
			return err
		}
		if err := s.ReplaceOrder(ctx, o); err != nil {
			return err
		}
		confirmed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, events.OrderConfirmed, confirmed)
	return confirmed, nil
}

// DeleteOrder removes an order and returns it. Stock held by the order is
// released only when the handler is configured with DeleteRestock. Admin only.
func (h *Handler) DeleteOrder(ctx context.Context, actor authz.Actor, cmd DeleteOrder) (deleted *order.Order, err error) {
	ctx, span := h.startSpan(ctx, "order.delete", attribute.String("order.id", cmd.OrderID))
	defer func() { h.finish(span, "delete order", err, zap.String("order_id", cmd.OrderID)) }()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		o, err := s.FindOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if h.opts.DeleteRestock && o.HoldsReservation() {
			if err := inventory.ReleaseAll(ctx, s, o.Items); err != nil {
				return err
			}
		}
		if err := s.DeleteOrder(ctx, o.ID); err != nil {
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !h.opts.DeleteRestock && deleted.HoldsReservation() {
		h.logger.Warn("deleted order still held stock; quantities were not returned",
			zap.String("order_id", deleted.ID),
			zap.String("status", string(deleted.Status)),
		)
	}
	h.publish(ctx, events.OrderDeleted, deleted)
	return deleted, nil
}

// UpdateOrder changes an order's items and/or status. Admin only. The
// configured UpdateMode decides whether the state machine and stock
// bookkeeping apply.
func (h *Handler) UpdateOrder(ctx context.Context, actor authz.Actor, cmd UpdateOrder) (updated *order.Order, err error) {
	ctx, span := h.startSpan(ctx, "order.update",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("update.mode", string(h.opts.UpdateMode)),
	)
	changed := false
	defer func() {
		h.finish(span, "update order", err, zap.String("order_id", cmd.OrderID), zap.Bool("changed", changed))
	}()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if cmd.Items == nil && strings.TrimSpace(cmd.Status) == "" {
		return nil, order.ErrEmptyUpdate
	}
	if cmd.Items != nil {
		if err := order.ValidateItems(cmd.Items); err != nil {
			return nil, err
		}
	}
	var target order.Status
	if strings.TrimSpace(cmd.Status) != "" {
		if target, err = order.ParseStatus(cmd.Status); err != nil {
			return nil, err
		}
	}

	apply := h.updateValidated
	if h.opts.UpdateMode == UpdateOverride {
		apply = h.updateOverride
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		o, err := s.FindOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		c, err := apply(ctx, s, o, cmd.Items, target)
		if err != nil {
			return err
		}
		if c {
			if err := s.ReplaceOrder(ctx, o); err != nil {
				return err
			}
		}
		updated, changed = o, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		h.publish(ctx, events.OrderUpdated, updated)
	}
	return updated, nil
}

// updateValidated applies an item change first, then a status change, and
// reports whether anything differs from the stored order. Items may only
// change while the order is pending.
func (h *Handler) updateValidated(ctx context.Context, s store.Session, o *order.Order, items []order.Item, target order.Status) (bool, error) {
	itemsChanged := items != nil && !order.SameItems(items, o.Items)
	statusChanged := target != "" && target != o.Status
	if !itemsChanged && !statusChanged {
		return false, nil
	}
	now := h.now()

	if itemsChanged {
		if o.Status != order.StatusPending {
			return false, order.ErrItemsLocked
		}
		if err := inventory.ReleaseAll(ctx, s, o.Items); err != nil {
			return false, err
		}
		if err := inventory.ReserveAll(ctx, s, items); err != nil {
			return false, err
		}
		o.Items = order.CopyItems(items)
		o.UpdatedAt = now
	}

	if statusChanged {
		if err := o.TransitionTo(target, now); err != nil {
			return false, err
		}
		if target == order.StatusCancelled {
			if err := inventory.ReleaseAll(ctx, s, o.Items); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// updateOverride replaces items and status as given, without checking the
// state machine and without moving stock.
func (h *Handler) updateOverride(_ context.Context, _ store.Session, o *order.Order, items []order.Item, target order.Status) (bool, error) {
	h.logger.Warn("unchecked order override",
		zap.String("order_id", o.ID),
		zap.String("from_status", string(o.Status)),
		zap.String("to_status", string(target)),
		zap.Bool("items_replaced", items != nil),
	)
	if items != nil {
		o.Items = order.CopyItems(items)
	}
	if target != "" {
		o.Status = target
	}
	o.UpdatedAt = h.now()
	return true, nil
}
