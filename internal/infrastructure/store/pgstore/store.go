// Package pgstore implements store.Store on PostgreSQL through lib/pq.
// Transactions run at SERIALIZABLE; serialization failures and deadlocks
// come back as apperr.TransactionFailure.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/infrastructure/store"
)

var _ store.Store = (*Store)(nil)

// Connect opens a pooled connection to PostgreSQL and pings it.
func Connect(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	*session
}

func New(db *sql.DB) *Store {
	return &Store{db: db, session: &session{q: db}}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) WithTransaction(ctx context.Context, fn store.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err), nil, nil)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &session{q: tx}); err != nil {
		_ = tx.Rollback()
		return classify(err, nil, nil)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err), nil, nil)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

type session struct {
	q querier
}

var _ store.Session = (*session)(nil)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*product.Product, error) {
	var p product.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *session) FindProduct(ctx context.Context, id string) (*product.Product, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, classify(err, product.ErrProductNotFound, nil)
	}
	return p, nil
}

func (s *session) FindProductByName(ctx context.Context, name string) (*product.Product, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE lower(name) = lower($1)`, name)
	p, err := scanProduct(row)
	if err != nil {
		return nil, classify(err, product.ErrProductNotFound, nil)
	}
	return p, nil
}

func (s *session) ListProducts(ctx context.Context) ([]*product.Product, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := make([]*product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, p)
	}
	return out, classify(rows.Err(), nil, nil)
}

func (s *session) InsertProduct(ctx context.Context, p *product.Product) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	return classify(err, nil, product.ErrProductExists)
}

func (s *session) UpdateProduct(ctx context.Context, p *product.Product) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4, stock = $5, updated_at = $6 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.UpdatedAt,
	)
	if err != nil {
		return classify(err, nil, product.ErrProductExists)
	}
	return requireRow(res, product.ErrProductNotFound)
}

func (s *session) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return classify(err, nil, nil)
	}
	return requireRow(res, product.ErrProductNotFound)
}

// DecrementStockIf is one guarded UPDATE; the row is untouched when the
// stock would go negative.
func (s *session) DecrementStockIf(ctx context.Context, id string, qty int) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		id, qty,
	)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return affected(res)
}

func (s *session) IncrementStock(ctx context.Context, id string, qty int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, id, qty)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return affected(res)
}

const orderColumns = `id, user_id, items, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*order.Order, error) {
	var (
		o     order.Order
		items []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func (s *session) FindOrder(ctx context.Context, id string) (*order.Order, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, classify(err, order.ErrOrderNotFound, nil)
	}
	return o, nil
}

func (s *session) ListOrders(ctx context.Context, filter store.OrderFilter) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.UserID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, o)
	}
	return out, classify(rows.Err(), nil, nil)
}

func (s *session) InsertOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return classify(err, nil, nil)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, string(items), string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	return classify(err, nil, nil)
}

func (s *session) ReplaceOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return classify(err, nil, nil)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE orders SET user_id = $2, items = $3, status = $4, updated_at = $5 WHERE id = $1`,
		o.ID, o.UserID, string(items), string(o.Status), o.UpdatedAt,
	)
	if err != nil {
		return classify(err, nil, nil)
	}
	return requireRow(res, order.ErrOrderNotFound)
}

func (s *session) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return classify(err, nil, nil)
	}
	return requireRow(res, order.ErrOrderNotFound)
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, classify(err, user.ErrUserNotFound, nil)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *session) FindUser(ctx context.Context, id string) (*user.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *session) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, user.NormalizeEmail(email)))
}

func (s *session) InsertUser(ctx context.Context, u *user.User) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, user.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	return classify(err, nil, user.ErrUserExists)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return n > 0, nil
}

// requireRow returns notFound when the statement touched no row.
func requireRow(res sql.Result, notFound error) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}
