package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

var (
	ErrOrderNotFound     = apperr.New(apperr.NotFound, "order not found")
	ErrEmptyOrder        = apperr.New(apperr.Validation, "the order must contain at least one product")
	ErrMissingProduct    = apperr.New(apperr.Validation, "product is required for every item")
	ErrInvalidQuantity   = apperr.New(apperr.Validation, "quantity must be at least 1")
	ErrInvalidStatus     = apperr.New(apperr.Validation, "status must be one of Pending, Confirmed, Cancelled")
	ErrEmptyUpdate       = apperr.New(apperr.Validation, "at least one of items or status must be provided to update")
	ErrOrderCancelled    = apperr.New(apperr.InvalidTransition, "order already cancelled")
	ErrOrderConfirmed    = apperr.New(apperr.InvalidTransition, "order already confirmed")
	ErrInvalidTransition = apperr.New(apperr.InvalidTransition, "invalid order status transition")
	ErrItemsLocked       = apperr.New(apperr.InvalidTransition, "items can only be changed while the order is pending")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

// ParseStatus accepts the wire value of a status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.TrimSpace(s))
	if _, ok := validTransitions[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Item is one order line: a product reference and the quantity reserved for it.
type Item struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Items     []Item    `json:"items"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View is the read projection of an order. Audit timestamps are left out.
type View struct {
	ID     string `json:"id"`
	UserID string `json:"user"`
	Items  []Item `json:"items"`
	Status Status `json:"status"`
}

// New builds a pending order owned by userID. Items are validated and copied.
func New(userID string, items []Item, now time.Time) (*Order, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	return &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     CopyItems(items),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateItems checks the shape of an item list: non-empty, every line
// naming a product with a quantity of at least one.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperr.Wrap(apperr.Validation, fmt.Sprintf("item %d: %s", i, ErrMissingProduct.Message), ErrMissingProduct)
		}
		if item.Quantity < 1 {
			return apperr.Wrap(apperr.Validation, fmt.Sprintf("item %d: %s", i, ErrInvalidQuantity.Message), ErrInvalidQuantity)
		}
	}
	return nil
}

// CopyItems returns a copy that does not alias items.
func CopyItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// SameItems reports whether a and b list the same lines in the same order.
func SameItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	for _, s := range validTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch o.Status {
	case StatusCancelled:
		return ErrOrderCancelled
	case StatusConfirmed:
		return ErrOrderConfirmed
	default:
		return apperr.Wrap(apperr.InvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", o.Status, target), ErrInvalidTransition)
	}
}

// TransitionTo moves the order to target if the state machine allows it.
// The order is left untouched on error.
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

func (o *Order) Cancel(now time.Time) error  { return o.TransitionTo(StatusCancelled, now) }
func (o *Order) Confirm(now time.Time) error { return o.TransitionTo(StatusConfirmed, now) }

// HoldsReservation reports whether the order's quantities are currently
// deducted from product stock.
func (o *Order) HoldsReservation() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

func (o *Order) Clone() *Order {
	c := *o
	c.Items = CopyItems(o.Items)
	return &c
}

func (o *Order) View() View {
	return View{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  CopyItems(o.Items),
		Status: o.Status,
	}
}

// Views projects a list of orders, preserving order.
func Views(orders []*Order) []View {
	out := make([]View, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.View())
	}
	return out
}
