package auth

import (
	"github.com/example/ec-orders/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// HashPassword validates the plain-text password and hashes it using bcrypt
func HashPassword(password string) (string, error) {
	if err := user.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
