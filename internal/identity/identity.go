// Package identity resolves the calling principal from a bearer token.
// The principal id is passed explicitly into every core operation; nothing
// in the core reads ambient session state.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated identity making a request. It owns zero
// or more businesses.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Resolver validates bearer tokens and extracts the principal.
type Resolver struct {
	secret []byte
}

// NewResolver creates a resolver over an HS256 shared secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve validates tokenString (signature, expiry, algorithm pinned to
// HS256) and returns the principal carried in the sub claim.
func (r *Resolver) Resolve(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	principal := &Principal{ID: sub}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	return principal, nil
}

// IssueToken mints a token for a principal. Used by tests and local
// tooling; production tokens come from the external auth provider.
func (r *Resolver) IssueToken(principal *Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principal.ID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if principal.Email != "" {
		claims["email"] = principal.Email
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

type contextKey struct{}

// WithPrincipal stores the principal on the context. Only the HTTP layer
// uses this; services take the principal id as an argument.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, principal)
}

// FromContext retrieves the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(contextKey{}).(*Principal)
	return principal, ok
}
