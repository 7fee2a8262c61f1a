// Package jwt issues and verifies short-lived signed identity tokens.
package jwt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const tokenLifetime = time.Hour

var (
	// ErrMissingInput is returned when the token or the signing key is empty.
	ErrMissingInput = errors.New("token and JWT key are required")
	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("JWT token has expired")
	// ErrInvalidSignature is returned for tokens signed with a different key.
	ErrInvalidSignature = errors.New("JWT token signature is invalid")
)

// Claims carries the identity assertion: registered claims plus the username.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Service creates and verifies HS256 identity tokens.
type Service struct {
	key    []byte
	issuer string
	clock  clockwork.Clock
}

// NewService builds a Service. An empty key is tolerated (development mode);
// Create then returns "" and Verify fails with ErrMissingInput.
func NewService(key, issuer string, clock clockwork.Clock) *Service {
	return &Service{key: []byte(key), issuer: issuer, clock: clock}
}

// Create signs a one-hour identity token for the given username.
// Returns "" when the signing key is unset or signing fails.
func (s *Service) Create(username string) string {
	if len(s.key) == 0 {
		return ""
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
		Username: username,
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		slog.Error("Failed to create JWT token", "error", err)
		return ""
	}

	return signed
}

// Verify checks signature and expiry and extracts the username. The signing
// algorithm is pinned to HS256; the token's alg header is never trusted.
func (s *Service) Verify(tokenStr string) (string, error) {
	if tokenStr == "" || len(s.key) == 0 {
		return "", ErrMissingInput
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", ErrInvalidSignature
	case err != nil:
		return "", fmt.Errorf("failed to verify JWT token: %w", err)
	}

	if !token.Valid {
		return "", ErrInvalidSignature
	}

	return claims.Username, nil
}
