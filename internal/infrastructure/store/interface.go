package store

import (
	"context"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
)

// ProductStore persists the catalog and its stock counters.
type ProductStore interface {
	FindProduct(ctx context.Context, id string) (*product.Product, error)
	FindProductByName(ctx context.Context, name string) (*product.Product, error)
	ListProducts(ctx context.Context) ([]*product.Product, error)
	InsertProduct(ctx context.Context, p *product.Product) error
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// DecrementStockIf subtracts qty only when the current stock covers it.
	// applied is false when the product is missing or short on stock.
	DecrementStockIf(ctx context.Context, id string, qty int) (applied bool, err error)
	// IncrementStock adds qty unconditionally. found is false for a missing product.
	IncrementStock(ctx context.Context, id string, qty int) (found bool, err error)
}

// OrderFilter narrows ListOrders. The zero value matches every order.
type OrderFilter struct {
	UserID string
}

type OrderStore interface {
	FindOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*order.Order, error)
	InsertOrder(ctx context.Context, o *order.Order) error
	ReplaceOrder(ctx context.Context, o *order.Order) error
	DeleteOrder(ctx context.Context, id string) error
}

type UserStore interface {
	FindUser(ctx context.Context, id string) (*user.User, error)
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	InsertUser(ctx context.Context, u *user.User) error
}

// Session is the set of operations available inside (or outside) a
// transaction. Lookups return the domain NotFound sentinels when nothing
// matches; inserts on a taken unique key return the domain Conflict sentinels.
type Session interface {
	ProductStore
	OrderStore
	UserStore
}

// TxFunc is the body of a transaction. Returning an error aborts it.
type TxFunc func(ctx context.Context, s Session) error

// Store is a persistence backend. Its embedded Session runs each call on its
// own; WithTransaction groups calls into one atomic unit that commits when fn
// returns nil and rolls back on error or panic.
type Store interface {
	Session
	WithTransaction(ctx context.Context, fn TxFunc) error
	Close(ctx context.Context) error
}
