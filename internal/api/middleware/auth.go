package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-orders/internal/auth"
	"github.com/example/ec-orders/internal/authz"
	"github.com/example/ec-orders/internal/domain/user"
	"go.uber.org/zap"
)

// AccessTokenCookie is the cookie sign-in sets for browser clients.
const AccessTokenCookie = "access_token"

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// UserFinder loads the account a token refers to.
type UserFinder interface {
	FindUser(ctx context.Context, id string) (*user.User, error)
}

// AuthMiddleware validates the access token, loads the user it names and
// stores the resulting authz.Actor in the request context. The role comes
// from the stored account, not from the token.
func AuthMiddleware(jwtService *auth.JWTService, users UserFinder, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if errors.Is(err, auth.ErrExpiredToken) {
				respondError(w, "token has expired", http.StatusUnauthorized)
				return
			}
			if err != nil {
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			u, err := users.FindUser(r.Context(), claims.UserID)
			if errors.Is(err, user.ErrUserNotFound) {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err != nil {
				logger.Error("load authenticated user", zap.String("user_id", claims.UserID), zap.Error(err))
				respondError(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := authz.WithActor(r.Context(), authz.Actor{ID: u.ID, Role: u.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor returns the actor AuthMiddleware stored, or the zero actor.
func GetActor(ctx context.Context) authz.Actor {
	return authz.ActorFrom(ctx)
}
