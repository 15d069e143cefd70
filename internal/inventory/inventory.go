// Package inventory moves product stock for the order workflow. Every call
// takes the transaction-scoped session so stock changes commit or roll back
// together with the order that caused them.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/infrastructure/store"
)

var (
	ErrInsufficientStock = apperr.New(apperr.InsufficientStock, "product out of stock")
	ErrInvalidQuantity   = apperr.New(apperr.Validation, "quantity must be positive")
)

// Reserve takes qty units of productID out of stock.
func Reserve(ctx context.Context, s store.ProductStore, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	applied, err := s.DecrementStockIf(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", productID, err)
	}
	if applied {
		return nil
	}

	// The conditional decrement does not say why it matched nothing.
	p, err := s.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("reserve %s: %w", productID, err)
	}
	return apperr.Wrap(apperr.InsufficientStock,
		fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", productID, qty, p.Stock),
		ErrInsufficientStock)
}

// Release puts qty units of productID back into stock.
func Release(ctx context.Context, s store.ProductStore, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	found, err := s.IncrementStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if !found {
		return product.ErrProductNotFound
	}
	return nil
}

// ReserveAll reserves every line in order and stops at the first failure.
// Earlier reservations are undone by the caller's transaction rollback.
func ReserveAll(ctx context.Context, s store.ProductStore, items []order.Item) error {
	for _, it := range items {
		if err := Reserve(ctx, s, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll releases every line in order and stops at the first failure.
func ReleaseAll(ctx context.Context, s store.ProductStore, items []order.Item) error {
	for _, it := range items {
		if err := Release(ctx, s, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
