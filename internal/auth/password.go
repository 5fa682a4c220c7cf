// Package auth registers accounts, checks passwords and issues the bearer tokens the
// HTTP service accepts in place of server-side sessions.
package auth

import (
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"resumescore/internal/config"
	"resumescore/internal/errors"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher for cost, which must lie within the configured bounds.
func NewHasher(cost int) (*Hasher, error) {
	if cost < config.MinBcryptCost || cost > config.MaxBcryptCost {
		return nil, fmt.Errorf("bcrypt cost out of range: %d (must be %d-%d)", cost, config.MinBcryptCost, config.MaxBcryptCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of password. Passwords over MaxPasswordBytes are a
// validation error.
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes), nil)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
