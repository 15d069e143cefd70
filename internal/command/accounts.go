package command

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/example/ec-orders/internal/auth"
	"github.com/example/ec-orders/internal/domain/user"
	"github.com/example/ec-orders/internal/infrastructure/store"
	"go.uber.org/zap"
)

var ErrMissingCredentials = apperr.New(apperr.Validation, "email and password are required")

// SignUp registers a client account. The role is always client; admins are
// provisioned with EnsureAdmin.
func (h *Handler) SignUp(ctx context.Context, cmd SignUp) (*user.User, error) {
	return h.register(ctx, cmd.Name, cmd.Email, cmd.Password, user.RoleClient)
}

// SignIn checks credentials and returns the matching user.
func (h *Handler) SignIn(ctx context.Context, cmd SignIn) (u *user.User, err error) {
	ctx, span := h.startSpan(ctx, "user.sign_in")
	defer func() { h.finish(span, "sign in", err) }()

	email := user.NormalizeEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return nil, ErrMissingCredentials
	}

	u, err = h.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(cmd.Password, u.PasswordHash) {
		return nil, user.ErrWrongPassword
	}
	return u, nil
}

// EnsureAdmin creates an admin account unless the email is already
// registered. created reports whether a new account was stored.
func (h *Handler) EnsureAdmin(ctx context.Context, name, email, password string) (u *user.User, created bool, err error) {
	existing, err := h.store.FindUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != user.RoleAdmin {
			h.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("user_id", existing.ID))
		}
		return existing, false, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, false, err
	}

	u, err = h.register(ctx, name, email, password, user.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (h *Handler) register(ctx context.Context, name, email, password string, role user.Role) (created *user.User, err error) {
	ctx, span := h.startSpan(ctx, "user.sign_up")
	defer func() {
		var fields []zap.Field
		if created != nil {
			fields = append(fields, zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
		}
		h.finish(span, "sign up", err, fields...)
	}()

	u, err := user.New(strings.TrimSpace(name), email, "", role, h.now())
	if err != nil {
		return nil, err
	}
	if u.PasswordHash, err = auth.HashPassword(password); err != nil {
		return nil, err
	}

	err = h.inTx(ctx, func(ctx context.Context, s store.Session) error {
		_, err := s.FindUserByEmail(ctx, u.Email)
		if err == nil {
			return user.ErrUserExists
		}
		if !errors.Is(err, user.ErrUserNotFound) {
			return err
		}
		return s.InsertUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
