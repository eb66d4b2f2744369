// Package auth handles identity: session tokens (JWT), password hashing,
// GitHub OAuth and the HTTP middleware that puts the caller's user ID on the
// request context.
//
// SESSION TOKENS:
// A session is a signed HS256 JWT whose Subject is the user's ID. The server
// keeps no session table; any token that verifies against the secret, has our
// issuer and hasn't expired is a valid session. The token travels in an
// HttpOnly "token" cookie for browsers, or an "Authorization: Bearer" header
// for API clients.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/memory-journal/internal/apperror"
)

const (
	issuer = "memory-journal"

	// DefaultTokenTTL is how long a session lasts without signing in again.
	DefaultTokenTTL = 7 * 24 * time.Hour

	minSecretLength = 16
)

// TokenService issues and verifies session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService rejects secrets shorter than 16 bytes. A ttl of zero means
// DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens from Generate; the cookie uses it as Max-Age.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate issues a session token for userID.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.generate(userID, time.Now(), s.ttl)
}

func (s *TokenService) generate(userID string, now time.Time, ttl time.Duration) (string, error) {
	c := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user ID it was issued to.
// Every failure matches apperror.ErrUnauthorized.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		// Pinning the method rejects "alg: none" and RS/HS confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", apperror.Unauthorized("session expired")
	case err != nil:
		return "", apperror.Unauthorized("invalid session token")
	case c.Subject == "":
		return "", apperror.Unauthorized("session token has no subject")
	}
	return c.Subject, nil
}
