package authz

import (
	"context"
	"testing"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

var (
	owner     = Actor{ID: "user-1", Role: user.RoleClient}
	stranger  = Actor{ID: "user-2", Role: user.RoleClient}
	admin     = Actor{ID: "admin-1", Role: user.RoleAdmin}
	anonymous = Actor{}
	// a role claim without an identity must not grant anything
	roleOnly = Actor{Role: user.RoleAdmin}
)

func ownedOrder() *order.Order {
	return &order.Order{ID: "order-1", UserID: "user-1", Status: order.StatusPending}
}

func TestCanViewOrder(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"owner", owner, true},
		{"admin", admin, true},
		{"stranger", stranger, false},
		{"anonymous", anonymous, false},
		{"role without identity", roleOnly, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanViewOrder(tt.actor, ownedOrder()))
			assert.Equal(t, tt.want, CanCancelOrder(tt.actor, ownedOrder()))
		})
	}
}

func TestCanViewOrder_NilOrder(t *testing.T) {
	assert.False(t, CanViewOrder(admin, nil))
}

func TestAdminOnlyPredicates(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"admin", admin, true},
		{"client", owner, false},
		{"anonymous", anonymous, false},
		{"role without identity", roleOnly, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanListAllOrders(tt.actor))
			assert.Equal(t, tt.want, CanMutateAdminOnly(tt.actor))
			assert.Equal(t, tt.want, CanManageCatalog(tt.actor))
		})
	}
}

func TestCanCreateOrder(t *testing.T) {
	assert.True(t, CanCreateOrder(owner))
	assert.True(t, CanCreateOrder(admin))
	assert.False(t, CanCreateOrder(anonymous))
}

func TestCanViewUserOrders(t *testing.T) {
	assert.True(t, CanViewUserOrders(owner, "user-1"))
	assert.True(t, CanViewUserOrders(admin, "user-1"))
	assert.False(t, CanViewUserOrders(stranger, "user-1"))
	assert.False(t, CanViewUserOrders(anonymous, ""))
}

func TestRequire_IdentityCheckedFirst(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(anonymous), ErrUnauthenticated)
	assert.ErrorIs(t, RequireOrderAccess(anonymous, ownedOrder()), ErrUnauthenticated)
	assert.ErrorIs(t, RequireUserAccess(anonymous, ""), ErrUnauthenticated)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(Authenticated(anonymous)))
}

func TestRequire_Unauthorized(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(owner), ErrNotAdmin)
	assert.ErrorIs(t, RequireOrderAccess(stranger, ownedOrder()), ErrNotAuthorized)
	assert.ErrorIs(t, RequireUserAccess(stranger, "user-1"), ErrNotAuthorized)
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(RequireAdmin(owner)))

	assert.NoError(t, RequireAdmin(admin))
	assert.NoError(t, RequireOrderAccess(owner, ownedOrder()))
	assert.NoError(t, RequireUserAccess(owner, "user-1"))
}

func TestActorContext(t *testing.T) {
	ctx := WithActor(context.Background(), admin)

	assert.Equal(t, admin, ActorFrom(ctx))
	assert.Equal(t, Actor{}, ActorFrom(context.Background()))
}
