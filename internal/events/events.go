// Package events defines the order lifecycle messages published after each
// committed order mutation.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/ec-orders/internal/domain/order"
	"github.com/google/uuid"
)

type Type string

const (
	OrderCreated   Type = "OrderCreated"
	OrderCancelled Type = "OrderCancelled"
	OrderConfirmed Type = "OrderConfirmed"
	OrderUpdated   Type = "OrderUpdated"
	OrderDeleted   Type = "OrderDeleted"
)

// Envelope is the wire format of an order event. Data is the order as it
// was right after the change (right before it, for OrderDeleted).
type Envelope struct {
	ID         string      `json:"id"`
	Type       Type        `json:"type"`
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       order.Order `json:"data"`
}

// New snapshots o into an envelope of the given type.
func New(t Type, o *order.Order, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.New().String(),
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.UserID,
		OccurredAt: now.UTC(),
		Data:       *o.Clone(),
	}
}

// Decode parses a message value into an envelope.
func Decode(value []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(value, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode order event: %w", err)
	}
	if e.Type == "" || e.OrderID == "" {
		return Envelope{}, fmt.Errorf("decode order event: missing type or order id")
	}
	return e, nil
}

// Publisher delivers an event under a partition key.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
