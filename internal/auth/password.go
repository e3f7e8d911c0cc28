package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

const minPasswordLength = 8

// HashPassword hashes a plaintext password. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLength})
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hash. A mismatch is
// reported as UNAUTHORIZED.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return err
}
