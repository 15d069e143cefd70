// Package query serves read-only projections of orders and products.
// Projections leave out audit timestamps.
package query

import (
	"context"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/authz"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"go.uber.org/zap"
)

// Reader is the part of the store the query side needs.
type Reader interface {
	FindProduct(ctx context.Context, id string) (*product.Product, error)
	ListProducts(ctx context.Context) ([]*product.Product, error)
	FindOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, filter store.OrderFilter) ([]*order.Order, error)
}

type Handler struct {
	reader Reader
	logger *zap.Logger
}

func NewHandler(reader Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reader: reader, logger: logger.Named("query")}
}

// Orders

// GetOrder returns one order to its owner or an admin. A missing order is
// reported before ownership is checked.
func (h *Handler) GetOrder(ctx context.Context, actor authz.Actor, id string) (*order.View, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	o, err := h.reader.FindOrder(ctx, id)
	if err != nil {
		return nil, h.failed("get order", err, zap.String("order_id", id))
	}
	if err := authz.RequireOrderAccess(actor, o); err != nil {
		return nil, err
	}
	v := o.View()
	return &v, nil
}

// ListOrders returns every order (admin only).
func (h *Handler) ListOrders(ctx context.Context, actor authz.Actor) ([]order.View, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	orders, err := h.reader.ListOrders(ctx, store.OrderFilter{})
	if err != nil {
		return nil, h.failed("list orders", err)
	}
	return order.Views(orders), nil
}

// ListOrdersForUser returns the orders owned by userID, to that user or an admin.
func (h *Handler) ListOrdersForUser(ctx context.Context, actor authz.Actor, userID string) ([]order.View, error) {
	if err := authz.RequireUserAccess(actor, userID); err != nil {
		return nil, err
	}
	orders, err := h.reader.ListOrders(ctx, store.OrderFilter{UserID: userID})
	if err != nil {
		return nil, h.failed("list user orders", err, zap.String("user_id", userID))
	}
	return order.Views(orders), nil
}

// Products

func (h *Handler) GetProduct(ctx context.Context, actor authz.Actor, id string) (*product.View, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	p, err := h.reader.FindProduct(ctx, id)
	if err != nil {
		return nil, h.failed("get product", err, zap.String("product_id", id))
	}
	v := p.View()
	return &v, nil
}

func (h *Handler) ListProducts(ctx context.Context, actor authz.Actor) ([]product.View, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	products, err := h.reader.ListProducts(ctx)
	if err != nil {
		return nil, h.failed("list products", err)
	}
	views := make([]product.View, 0, len(products))
	for _, p := range products {
		views = append(views, p.View())
	}
	return views, nil
}

// failed logs unexpected store errors and passes err through.
func (h *Handler) failed(op string, err error, fields ...zap.Field) error {
	if apperr.KindOf(err) == apperr.Internal {
		h.logger.Error(op, append(fields, zap.Error(err))...)
	}
	return err
}
