// Package memstore is an in-memory store.Store for tests and local runs.
//
// Transactions are serialized: one writer holds the lock for the whole
// transaction, works on a copy of the collections and swaps the copy in on
// commit. Every value handed out is a copy.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/infrastructure/store"
)

var _ store.Store = (*Store)(nil)

type data struct {
	products     map[string]*product.Product
	productOrder []string
	orders       map[string]*order.Order
	orderOrder   []string
	users        map[string]*user.User
}

func newData() *data {
	return &data{
		products: make(map[string]*product.Product),
		orders:   make(map[string]*order.Order),
		users:    make(map[string]*user.User),
	}
}

func (d *data) clone() *data {
	c := &data{
		products:     make(map[string]*product.Product, len(d.products)),
		productOrder: append([]string(nil), d.productOrder...),
		orders:       make(map[string]*order.Order, len(d.orders)),
		orderOrder:   append([]string(nil), d.orderOrder...),
		users:        make(map[string]*user.User, len(d.users)),
	}
	for id, p := range d.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, o := range d.orders {
		c.orders[id] = o.Clone()
	}
	for id, u := range d.users {
		cu := *u
		c.users[id] = &cu
	}
	return c
}

// Store keeps products, orders and users in maps guarded by one RWMutex.
type Store struct {
	mu   sync.RWMutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

// WithTransaction runs fn against a private copy of the data and publishes
// the copy only if fn returns nil. A panic in fn discards the copy and is
// re-raised.
func (s *Store) WithTransaction(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.data.clone()
	if err := fn(ctx, &session{data: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.data = working
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

// read runs fn under the read lock against the committed data.
func (s *Store) read(fn func(*session) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&session{data: s.data})
}

// write runs fn as a single-operation transaction.
func (s *Store) write(ctx context.Context, fn func(*session) error) error {
	return s.WithTransaction(ctx, func(_ context.Context, sess store.Session) error {
		return fn(sess.(*session))
	})
}

func (s *Store) FindProduct(ctx context.Context, id string) (p *product.Product, err error) {
	err = s.read(func(sess *session) error {
		p, err = sess.FindProduct(ctx, id)
		return err
	})
	return p, err
}

func (s *Store) FindProductByName(ctx context.Context, name string) (p *product.Product, err error) {
	err = s.read(func(sess *session) error {
		p, err = sess.FindProductByName(ctx, name)
		return err
	})
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) (ps []*product.Product, err error) {
	err = s.read(func(sess *session) error {
		ps, err = sess.ListProducts(ctx)
		return err
	})
	return ps, err
}

func (s *Store) InsertProduct(ctx context.Context, p *product.Product) error {
	return s.write(ctx, func(sess *session) error { return sess.InsertProduct(ctx, p) })
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	return s.write(ctx, func(sess *session) error { return sess.UpdateProduct(ctx, p) })
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.write(ctx, func(sess *session) error { return sess.DeleteProduct(ctx, id) })
}

func (s *Store) DecrementStockIf(ctx context.Context, id string, qty int) (applied bool, err error) {
	err = s.write(ctx, func(sess *session) error {
		applied, err = sess.DecrementStockIf(ctx, id, qty)
		return err
	})
	return applied, err
}

func (s *Store) IncrementStock(ctx context.Context, id string, qty int) (found bool, err error) {
	err = s.write(ctx, func(sess *session) error {
		found, err = sess.IncrementStock(ctx, id, qty)
		return err
	})
	return found, err
}

func (s *Store) FindOrder(ctx context.Context, id string) (o *order.Order, err error) {
	err = s.read(func(sess *session) error {
		o, err = sess.FindOrder(ctx, id)
		return err
	})
	return o, err
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) (os []*order.Order, err error) {
	err = s.read(func(sess *session) error {
		os, err = sess.ListOrders(ctx, filter)
		return err
	})
	return os, err
}

func (s *Store) InsertOrder(ctx context.Context, o *order.Order) error {
	return s.write(ctx, func(sess *session) error { return sess.InsertOrder(ctx, o) })
}

func (s *Store) ReplaceOrder(ctx context.Context, o *order.Order) error {
	return s.write(ctx, func(sess *session) error { return sess.ReplaceOrder(ctx, o) })
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	return s.write(ctx, func(sess *session) error { return sess.DeleteOrder(ctx, id) })
}

func (s *Store) FindUser(ctx context.Context, id string) (u *user.User, err error) {
	err = s.read(func(sess *session) error {
		u, err = sess.FindUser(ctx, id)
		return err
	})
	return u, err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (u *user.User, err error) {
	err = s.read(func(sess *session) error {
		u, err = sess.FindUserByEmail(ctx, email)
		return err
	})
	return u, err
}

func (s *Store) InsertUser(ctx context.Context, u *user.User) error {
	return s.write(ctx, func(sess *session) error { return sess.InsertUser(ctx, u) })
}

// session operates on one data snapshot. Inside a transaction that snapshot
// is the private working copy.
type session struct {
	data *data
}

var _ store.Session = (*session)(nil)

func (s *session) FindProduct(_ context.Context, id string) (*product.Product, error) {
	p, ok := s.data.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *session) FindProductByName(_ context.Context, name string) (*product.Product, error) {
	for _, id := range s.data.productOrder {
		if p := s.data.products[id]; strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, product.ErrProductNotFound
}

func (s *session) ListProducts(context.Context) ([]*product.Product, error) {
	out := make([]*product.Product, 0, len(s.data.productOrder))
	for _, id := range s.data.productOrder {
		cp := *s.data.products[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *session) InsertProduct(ctx context.Context, p *product.Product) error {
	if _, ok := s.data.products[p.ID]; ok {
		return product.ErrProductExists
	}
	if _, err := s.FindProductByName(ctx, p.Name); err == nil {
		return product.ErrProductExists
	}
	cp := *p
	s.data.products[p.ID] = &cp
	s.data.productOrder = append(s.data.productOrder, p.ID)
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, p *product.Product) error {
	if _, ok := s.data.products[p.ID]; !ok {
		return product.ErrProductNotFound
	}
	if other, err := s.FindProductByName(ctx, p.Name); err == nil && other.ID != p.ID {
		return product.ErrProductExists
	}
	cp := *p
	s.data.products[p.ID] = &cp
	return nil
}

func (s *session) DeleteProduct(_ context.Context, id string) error {
	if _, ok := s.data.products[id]; !ok {
		return product.ErrProductNotFound
	}
	delete(s.data.products, id)
	s.data.productOrder = without(s.data.productOrder, id)
	return nil
}

func (s *session) DecrementStockIf(_ context.Context, id string, qty int) (bool, error) {
	p, ok := s.data.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (s *session) IncrementStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := s.data.products[id]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	return true, nil
}

func (s *session) FindOrder(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.data.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *session) ListOrders(_ context.Context, filter store.OrderFilter) ([]*order.Order, error) {
	out := make([]*order.Order, 0)
	for _, id := range s.data.orderOrder {
		o := s.data.orders[id]
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, o.Clone())
	}
	return out, nil
}

func (s *session) InsertOrder(_ context.Context, o *order.Order) error {
	if _, ok := s.data.orders[o.ID]; ok {
		return fmt.Errorf("order %s already stored", o.ID)
	}
	s.data.orders[o.ID] = o.Clone()
	s.data.orderOrder = append(s.data.orderOrder, o.ID)
	return nil
}

func (s *session) ReplaceOrder(_ context.Context, o *order.Order) error {
	if _, ok := s.data.orders[o.ID]; !ok {
		return order.ErrOrderNotFound
	}
	s.data.orders[o.ID] = o.Clone()
	return nil
}

func (s *session) DeleteOrder(_ context.Context, id string) error {
	if _, ok := s.data.orders[id]; !ok {
		return order.ErrOrderNotFound
	}
	delete(s.data.orders, id)
	s.data.orderOrder = without(s.data.orderOrder, id)
	return nil
}

func (s *session) FindUser(_ context.Context, id string) (*user.User, error) {
	u, ok := s.data.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cu := *u
	return &cu, nil
}

func (s *session) FindUserByEmail(_ context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	for _, u := range s.data.users {
		if u.Email == email {
			cu := *u
			return &cu, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *session) InsertUser(ctx context.Context, u *user.User) error {
	if _, ok := s.data.users[u.ID]; ok {
		return user.ErrUserExists
	}
	if _, err := s.FindUserByEmail(ctx, u.Email); err == nil {
		return user.ErrUserExists
	}
	cu := *u
	s.data.users[u.ID] = &cu
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
