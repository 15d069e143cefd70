package command

import (
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
)

// Order Commands
type CreateOrder struct {
	Items []order.Item `json:"items"`
	// IdempotencyKey is optional; see Handler.CreateOrder.
	IdempotencyKey string `json:"-"`
}

type CancelOrder struct {
	OrderID string `json:"order_id"`
}

type ConfirmOrder struct {
	OrderID string `json:"order_id"`
}

// UpdateOrder changes items and/or status. A nil Items or empty Status
// leaves that field alone.
type UpdateOrder struct {
	OrderID string       `json:"order_id"`
	Items   []order.Item `json:"items,omitempty"`
	Status  string       `json:"status,omitempty"`
}

type DeleteOrder struct {
	OrderID string `json:"order_id"`
}

// Product Commands
type CreateProduct struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type UpdateProduct struct {
	ProductID string `json:"product_id"`
	product.Patch
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

// Account Commands
type SignUp struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
