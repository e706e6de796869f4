// Package auth verifies admin bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/domain"
)

const issuer = "nowplaying"

// Claims is the admin token payload.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenAuthenticator validates HS256 tokens whose subject is the configured admin user.
type TokenAuthenticator struct {
	secret   []byte
	username string
	clock    clockwork.Clock
}

var _ domain.Authenticator = (*TokenAuthenticator)(nil)

func NewTokenAuthenticator(secret, username string, clock clockwork.Clock) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret), username: username, clock: clock}
}

// VerifyToken checks signature, expiry and subject. Every failure wraps domain.ErrInvalidToken.
func (a *TokenAuthenticator) VerifyToken(_ context.Context, tokenString string) (*domain.Principal, error) {
	if len(a.secret) == 0 || a.username == "" {
		return nil, fmt.Errorf("%w: admin not configured", domain.ErrInvalidToken)
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	},
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject != a.username {
		return nil, fmt.Errorf("%w: unknown subject", domain.ErrInvalidToken)
	}

	return &domain.Principal{Subject: claims.Subject}, nil
}

// IssueToken signs an admin token valid for ttl.
func (a *TokenAuthenticator) IssueToken(ttl time.Duration) (string, error) {
	if len(a.secret) == 0 || a.username == "" {
		return "", errors.New("admin not configured")
	}

	now := a.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
