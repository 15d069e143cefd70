// Package authz holds the pure access rules for orders and the catalog.
// Predicates never touch storage; callers load the order first.
package authz

import (
	"context"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/user"
)

var (
	ErrUnauthenticated = apperr.New(apperr.Unauthenticated, "authentication required")
	ErrNotAdmin        = apperr.New(apperr.Unauthorized, "user is not admin")
	ErrNotAuthorized   = apperr.New(apperr.Unauthorized, "user is not authorized")
)

// Actor is the authenticated principal performing a request.
type Actor struct {
	ID   string
	Role user.Role
}

// IsAuthenticated reports whether the actor carries an identity.
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == user.RoleAdmin
}

// CanViewOrder: admins see every order, clients only their own.
func CanViewOrder(a Actor, o *order.Order) bool {
	if !a.IsAuthenticated() || o == nil {
		return false
	}
	return a.IsAdmin() || a.ID == o.UserID
}

func CanListAllOrders(a Actor) bool { return a.IsAdmin() }

// CanMutateAdminOnly gates update, confirm and delete.
func CanMutateAdminOnly(a Actor) bool { return a.IsAdmin() }

func CanCreateOrder(a Actor) bool { return a.IsAuthenticated() }

// CanCancelOrder follows the view rule: the owner or an admin.
func CanCancelOrder(a Actor, o *order.Order) bool { return CanViewOrder(a, o) }

// CanViewUserOrders allows a client to list their own orders and admins anyone's.
func CanViewUserOrders(a Actor, userID string) bool {
	return a.IsAdmin() || (a.IsAuthenticated() && a.ID == userID)
}

func CanManageCatalog(a Actor) bool { return a.IsAdmin() }

// Authenticated fails with Unauthenticated when the actor has no identity.
func Authenticated(a Actor) error {
	if !a.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// RequireAdmin checks identity first, then the admin role.
func RequireAdmin(a Actor) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// RequireOrderAccess checks identity first, then ownership.
func RequireOrderAccess(a Actor, o *order.Order) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if !CanViewOrder(a, o) {
		return ErrNotAuthorized
	}
	return nil
}

// RequireUserAccess checks identity first, then that the actor is userID or an admin.
func RequireUserAccess(a Actor, userID string) error {
	if err := Authenticated(a); err != nil {
		return err
	}
	if !CanViewUserOrders(a, userID) {
		return ErrNotAuthorized
	}
	return nil
}

type contextKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or the zero (unauthenticated) actor.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(contextKey{}).(Actor)
	return a
}
