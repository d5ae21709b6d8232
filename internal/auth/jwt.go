// Package auth issues and checks the bearer tokens that guard
// destructive admin routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var (
	ErrEmptySecret = errors.New("auth: empty signing secret")
	ErrBadClaims   = errors.New("auth: unexpected token claims")
)

// TokenService signs and verifies HS256 tokens. The zero Duration is
// treated as one hour.
type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

// Claims is the token payload: a role on top of the registered claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool { return c != nil && c.Role == RoleAdmin }

func (ts TokenService) ttl() time.Duration {
	if ts.Duration == 0 {
		return time.Hour
	}
	return ts.Duration
}

// Sign returns a token for subject with role and the instant it expires.
func (ts TokenService) Sign(subject, role string) (string, time.Time, error) {
	if len(ts.Secret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	issued := time.Now()
	expires := issued.Add(ts.ttl())

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token for %q: %w", subject, err)
	}
	return signed, expires, nil
}

func (ts TokenService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}
	return opts
}

// Parse verifies raw and returns its claims. Tokens from another issuer,
// expired tokens and anything not signed with HS256 are rejected.
func (ts TokenService) Parse(raw string) (*Claims, error) {
	if len(ts.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	claims := &Claims{}
	keyFunc := func(*jwt.Token) (any, error) { return ts.Secret, nil }

	tok, err := jwt.ParseWithClaims(raw, claims, keyFunc, ts.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, ErrBadClaims
	}
	return claims, nil
}
