package user

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/google/uuid"
)

// Role is the closed set of principals the API knows about.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

var (
	ErrUserNotFound    = apperr.New(apperr.NotFound, "user not found")
	ErrUserExists      = apperr.New(apperr.Conflict, "user already exists")
	ErrInvalidName     = apperr.New(apperr.Validation, "the name must be 2 to 50 characters and contain only letters and spaces")
	ErrInvalidEmail    = apperr.New(apperr.Validation, "please provide a valid email address")
	ErrInvalidPassword = apperr.New(apperr.Validation, "password must be between 6 and 72 characters")
	ErrInvalidRole     = apperr.New(apperr.Validation, "role must be client or admin")
	ErrWrongPassword   = apperr.New(apperr.Unauthenticated, "invalid password")
)

const (
	minNameLength     = 2
	maxNameLength     = 50
	minPasswordLength = 6
	// bcrypt only looks at the first 72 bytes.
	maxPasswordBytes = 72
)

var (
	namePattern  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s']+$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// ParseRole accepts a wire value; the empty string means client.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case "", RoleClient:
		return RoleClient, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrInvalidRole
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength || !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}

// New builds a user from an already hashed password. Name is trimmed and
// email normalized before validation.
func New(name, email, passwordHash string, role Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if role != RoleClient && role != RoleAdmin {
		return nil, ErrInvalidRole
	}
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
