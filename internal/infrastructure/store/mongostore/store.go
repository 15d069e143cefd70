// Package mongostore implements store.Store on MongoDB. Transactions need a
// replica set or a sharded cluster.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"

	connectTimeout = 10 * time.Second

	// commitAttempts bounds how often a commit with an unknown result is
	// re-sent before giving up.
	commitAttempts = 3
)

var _ store.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	*session
}

// Connect dials uri, pings the primary and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := New(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{client: client, db: db, session: &session{db: db}}
}

// EnsureIndexes creates the unique keys the store relies on for conflict
// detection plus the order listing index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "name_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// WithTransaction runs fn in a multi-document transaction with snapshot
// reads and majority writes. It does not retry; aborts surface as
// apperr.TransactionFailure so the caller decides.
func (s *Store) WithTransaction(ctx context.Context, fn store.TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return classify(fmt.Errorf("start session: %w", err), nil, nil)
	}
	// Ending the session aborts a transaction left open by an error or panic.
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txOpts); err != nil {
			return classify(fmt.Errorf("start transaction: %w", err), nil, nil)
		}
		if err := fn(sc, s.session); err != nil {
			_ = sess.AbortTransaction(context.Background())
			return classify(err, nil, nil)
		}
		return commitWithRetry(sc, sess.CommitTransaction)
	})
}

// commitWithRetry re-sends only the commit while its outcome is unknown.
// Re-running the transaction body could apply it twice. A commit that stays
// unknown is reported as internal so nobody retries the whole operation.
func commitWithRetry(ctx context.Context, commit func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		if err = commit(ctx); err == nil {
			return nil
		}
		if !hasLabel(err, labelUnknownCommit) || ctx.Err() != nil {
			return classify(fmt.Errorf("commit: %w", err), nil, nil)
		}
	}
	return apperr.Wrap(apperr.Internal, "transaction commit outcome unknown", fmt.Errorf("commit after %d attempts: %w", commitAttempts, err))
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// session issues every call with the context it is given. Inside
// WithTransaction that context is the mongo.SessionContext, which binds the
// call to the open transaction.
type session struct {
	db *mongo.Database
}

var _ store.Session = (*session)(nil)

func (s *session) products() *mongo.Collection { return s.db.Collection(productsCollection) }
func (s *session) orders() *mongo.Collection   { return s.db.Collection(ordersCollection) }
func (s *session) users() *mongo.Collection    { return s.db.Collection(usersCollection) }

func (s *session) FindProduct(ctx context.Context, id string) (*product.Product, error) {
	return s.findProduct(ctx, bson.M{"_id": id})
}

func (s *session) FindProductByName(ctx context.Context, name string) (*product.Product, error) {
	return s.findProduct(ctx, bson.M{"name_key": nameKey(name)})
}

func (s *session) findProduct(ctx context.Context, filter bson.M) (*product.Product, error) {
	var doc productDoc
	if err := s.products().FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(err, product.ErrProductNotFound, nil)
	}
	return doc.toDomain(), nil
}

func (s *session) ListProducts(ctx context.Context) ([]*product.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.products().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, nil, nil)
	}
	out := make([]*product.Product, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *session) InsertProduct(ctx context.Context, p *product.Product) error {
	_, err := s.products().InsertOne(ctx, productFromDomain(p))
	return classify(err, nil, product.ErrProductExists)
}

func (s *session) UpdateProduct(ctx context.Context, p *product.Product) error {
	res, err := s.products().ReplaceOne(ctx, bson.M{"_id": p.ID}, productFromDomain(p))
	if err != nil {
		return classify(err, nil, product.ErrProductExists)
	}
	if res.MatchedCount == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func (s *session) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(err, nil, nil)
	}
	if res.DeletedCount == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

// DecrementStockIf is a single conditional update, so concurrent
// reservations can never take stock below zero.
func (s *session) DecrementStockIf(ctx context.Context, id string, qty int) (bool, error) {
	res, err := s.products().UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return res.ModifiedCount == 1, nil
}

func (s *session) IncrementStock(ctx context.Context, id string, qty int) (bool, error) {
	res, err := s.products().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}},
	)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return res.MatchedCount == 1, nil
}

func (s *session) FindOrder(ctx context.Context, id string) (*order.Order, error) {
	var doc orderDoc
	if err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, classify(err, order.ErrOrderNotFound, nil)
	}
	return doc.toDomain(), nil
}

func (s *session) ListOrders(ctx context.Context, filter store.OrderFilter) ([]*order.Order, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["user_id"] = filter.UserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.orders().Find(ctx, q, opts)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, nil, nil)
	}
	out := make([]*order.Order, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (s *session) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := s.orders().InsertOne(ctx, orderFromDomain(o))
	return classify(err, nil, nil)
}

func (s *session) ReplaceOrder(ctx context.Context, o *order.Order) error {
	res, err := s.orders().ReplaceOne(ctx, bson.M{"_id": o.ID}, orderFromDomain(o))
	if err != nil {
		return classify(err, nil, nil)
	}
	if res.MatchedCount == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *session) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.orders().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(err, nil, nil)
	}
	if res.DeletedCount == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *session) FindUser(ctx context.Context, id string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *session) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"email": user.NormalizeEmail(email)})
}

func (s *session) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDoc
	if err := s.users().FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(err, user.ErrUserNotFound, nil)
	}
	return doc.toDomain(), nil
}

func (s *session) InsertUser(ctx context.Context, u *user.User) error {
	_, err := s.users().InsertOne(ctx, userFromDomain(u))
	return classify(err, nil, user.ErrUserExists)
}

