package command

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ec-orders/internal/authz"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreateProduct adds a product to the catalog. Names are unique
// case-insensitively. Admin only.
func (h *Handler) CreateProduct(ctx context.Context, actor authz.Actor, cmd CreateProduct) (created *product.Product, err error) {
	ctx, span := h.startSpan(ctx, "product.create")
	defer func() {
		var fields []zap.Field
		if created != nil {
			fields = append(fields, zap.String("product_id", created.ID))
		}
		h.finish(span, "create product", err, fields...)
	}()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	p, err := product.New(cmd.Name, cmd.Description, cmd.Price, cmd.Stock, h.now())
	if err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		if err := ensureNameFree(ctx, s, p.Name, ""); err != nil {
			return err
		}
		return s.InsertProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct applies a partial update, stock included. Admin only.
func (h *Handler) UpdateProduct(ctx context.Context, actor authz.Actor, cmd UpdateProduct) (updated *product.Product, err error) {
	ctx, span := h.startSpan(ctx, "product.update", attribute.String("product.id", cmd.ProductID))
	defer func() { h.finish(span, "update product", err, zap.String("product_id", cmd.ProductID)) }()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if cmd.Patch.IsEmpty() {
		return nil, product.ErrEmptyUpdate
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		current, err := s.FindProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		next, err := current.Apply(cmd.Patch, h.now())
		if err != nil {
			return err
		}
		if !strings.EqualFold(next.Name, current.Name) {
			if err := ensureNameFree(ctx, s, next.Name, current.ID); err != nil {
				return err
			}
		}
		if err := s.UpdateProduct(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes a product and returns it. Orders referencing it are
// left as they are. Admin only.
func (h *Handler) DeleteProduct(ctx context.Context, actor authz.Actor, cmd DeleteProduct) (deleted *product.Product, err error) {
	ctx, span := h.startSpan(ctx, "product.delete", attribute.String("product.id", cmd.ProductID))
	defer func() { h.finish(span, "delete product", err, zap.String("product_id", cmd.ProductID)) }()

	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		p, err := s.FindProduct(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if err := s.DeleteProduct(ctx, p.ID); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ensureNameFree fails with ErrProductExists when another product than
// exceptID already uses name.
func ensureNameFree(ctx context.Context, s store.ProductStore, name, exceptID string) error {
	existing, err := s.FindProductByName(ctx, name)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == exceptID {
		return nil
	}
	return product.ErrProductExists
}
