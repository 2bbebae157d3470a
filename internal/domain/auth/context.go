package auth

import (
	"context"
	"strings"
)

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx so outbound calls can
// forward it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey{}).(string)
	if !ok || strings.TrimSpace(tok) == "" {
		return "", false
	}
	return tok, true
}
