package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/memory-journal/internal/apperror"
)

const (
	defaultCost = 12

	MinPasswordLength = 8
	// bcrypt silently ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

// PasswordService hashes and checks passwords with bcrypt.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost lets tests use bcrypt.MinCost.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	switch {
	case len(plaintext) < MinPasswordLength:
		return "", apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(plaintext) > MaxPasswordLength:
		return "", apperror.ValidationFailed("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns apperror.ErrUnauthorized when plaintext doesn't match hash.
// An account without a password (OAuth-only) never verifies.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return apperror.Unauthorized("invalid email or password")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
