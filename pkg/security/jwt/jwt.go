// Package jwt issues and verifies management-plane bearer tokens. Tokens
// carry the caller's roles; the authz package maps roles to permission codes.
package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/confcenter/pkg/errors"
	jwtopts "github.com/kart-io/confcenter/pkg/options/jwt"
)

// Claims are the confcenter token claims.
type Claims struct {
	Roles []string `json:"roles"`
	jwtlib.RegisteredClaims
}

// Manager signs and verifies tokens with a shared HMAC key.
type Manager struct {
	opts *jwtopts.Options
}

// New creates a token Manager from options.
func New(opts *jwtopts.Options) (*Manager, error) {
	if opts == nil {
		return nil, fmt.Errorf("jwt options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Manager{opts: opts}, nil
}

// Sign issues a token for the subject with the given roles.
func (m *Manager) Sign(subject string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.opts.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(m.opts.Expiration)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.opts.Key))
}

// Verify parses and validates a token string.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(m.opts.Key), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.ErrTokenInvalid.WithCause(err)
	}
	if claims.Issuer != m.opts.Issuer {
		return nil, errors.ErrTokenInvalid.WithMessage("unexpected token issuer")
	}
	return claims, nil
}
