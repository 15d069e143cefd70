package api

import (
	"net/http"
	"time"

	"github.com/example/ec-orders/internal/api/middleware"
	"github.com/example/ec-orders/internal/auth"
	"github.com/example/ec-orders/internal/command"
	"github.com/example/ec-orders/internal/domain/user"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	cmdHandler *command.Handler
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cmdHandler *command.Handler, jwtService *auth.JWTService, logger *zap.Logger) *AuthHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{
		cmdHandler: cmdHandler,
		jwtService: jwtService,
		logger:     logger.Named("auth"),
	}
}

// AuthResponse is the data of a successful sign-up or sign-in.
type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// SignUp registers a client account and signs it in.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var cmd command.SignUp
	if err := decodeJSON(w, r, &cmd); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.cmdHandler.SignUp(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, "User created successfully", created)
}

// SignIn checks credentials and issues an access token.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var cmd command.SignIn
	if err := decodeJSON(w, r, &cmd); err != nil {
		respondError(w, err)
		return
	}

	u, err := h.cmdHandler.SignIn(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, "User logged in successfully", u)
}

// SignOut clears the access token cookie. Tokens are stateless, so bearer
// clients simply drop theirs.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	respondJSON(w, http.StatusOK, "User signed out successfully", nil)
}

// Helper methods

func (h *AuthHandlers) respondWithToken(w http.ResponseWriter, r *http.Request, status int, message string, u *user.User) {
	token, expiresAt, err := h.jwtService.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		h.logger.Error("sign access token", zap.String("user_id", u.ID), zap.Error(err))
		respondJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.setAuthCookie(w, r, token, expiresAt)
	respondJSON(w, status, message, AuthResponse{Token: token, User: u})
}

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}
