// Package jwt issues and verifies HMAC-signed bearer tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opsdesk/incident-desk/internal/domain"
)

// Config holds authenticator configuration.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Claims are the JWT claims carried in issued tokens.
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(config Config) (*Authenticator, error) {
	if config.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = 24 * time.Hour
	}
	return &Authenticator{
		secret: []byte(config.Secret),
		ttl:    config.TokenTTL,
	}, nil
}

// GenerateToken issues a signed token for the user.
func (a *Authenticator) GenerateToken(_ context.Context, username string, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token, returning the username and role.
func (a *Authenticator) VerifyToken(_ context.Context, tokenString string) (string, domain.Role, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return "", "", errors.New("invalid token")
	}
	if !claims.Role.IsValid() {
		return "", "", fmt.Errorf("invalid role in token: %s", claims.Role)
	}
	return claims.Username, claims.Role, nil
}
