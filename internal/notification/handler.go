// Package notification turns order events into customer emails.
package notification

import (
	"context"
	"errors"

	"github.com/example/ec-orders/internal/domain/product"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/email"
	"github.com/example/ec-orders/internal/events"
	"go.uber.org/zap"
)

// Mailer sends one rendered order email. *email.Service satisfies it.
type Mailer interface {
	SendOrderMail(kind email.Kind, m email.OrderMail) error
}

// Directory resolves the recipient and the product names of an order.
type Directory interface {
	FindUser(ctx context.Context, id string) (*user.User, error)
	FindProduct(ctx context.Context, id string) (*product.Product, error)
}

// Deduper reports whether an event id is seen for the first time.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

var mailKinds = map[events.Type]email.Kind{
	events.OrderCreated:   email.KindOrderReceived,
	events.OrderConfirmed: email.KindOrderConfirmed,
	events.OrderCancelled: email.KindOrderCancelled,
}

// Handler processes events for sending notifications
type Handler struct {
	mailer    Mailer
	directory Directory
	dedup     Deduper
	logger    *zap.Logger
}

// NewHandler creates a new notification handler. dedup may be nil.
func NewHandler(mailer Mailer, directory Directory, dedup Deduper, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mailer:    mailer,
		directory: directory,
		dedup:     dedup,
		logger:    logger.Named("notifier"),
	}
}

// HandleEvent processes one message from the order topic. Updated and
// deleted orders produce no email.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	env, err := events.Decode(value)
	if err != nil {
		h.logger.Warn("skip malformed event", zap.ByteString("key", key), zap.Error(err))
		return err
	}

	kind, ok := mailKinds[env.Type]
	if !ok {
		return nil
	}

	log := h.logger.With(
		zap.String("event_id", env.ID),
		zap.String("type", string(env.Type)),
		zap.String("order_id", env.OrderID),
	)

	if h.dedup != nil {
		first, err := h.dedup.FirstSeen(ctx, env.ID)
		switch {
		case err != nil:
			// at-least-once: fall through and send
			log.Warn("dedup unavailable", zap.Error(err))
		case !first:
			log.Debug("duplicate event skipped")
			return nil
		}
	}

	u, err := h.directory.FindUser(ctx, env.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		log.Warn("order owner not found", zap.String("user_id", env.UserID))
		return nil
	}
	if err != nil {
		return err
	}

	mail := email.OrderMail{
		To:           u.Email,
		CustomerName: u.Name,
		OrderID:      env.OrderID,
		Items:        h.mailItems(ctx, env, log),
	}
	if err := h.mailer.SendOrderMail(kind, mail); err != nil {
		log.Error("send email", zap.String("to", u.Email), zap.Error(err))
		return err
	}

	log.Info("email sent", zap.String("to", u.Email))
	return nil
}

// mailItems resolves product names and prices. A product deleted since the
// event was published shows up by id.
func (h *Handler) mailItems(ctx context.Context, env events.Envelope, log *zap.Logger) []email.OrderItem {
	items := make([]email.OrderItem, 0, len(env.Data.Items))
	for _, it := range env.Data.Items {
		mi := email.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
		p, err := h.directory.FindProduct(ctx, it.ProductID)
		switch {
		case err == nil:
			mi.Name = p.Name
			mi.Price = p.Price
		case !errors.Is(err, product.ErrProductNotFound):
			log.Warn("look up product", zap.String("product_id", it.ProductID), zap.Error(err))
		}
		items = append(items, mi)
	}
	return items
}
