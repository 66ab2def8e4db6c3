package middleware

import (
	"context"
	"time"
)

type principalKey struct{}

// principal is what Auth learns about the caller from the access token.
type principal struct {
	userID    int64
	username  string
	tokenID   string
	expiresAt time.Time
}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// UserIDFromContext returns the authenticated user id, or 0 for anonymous callers.
func UserIDFromContext(ctx context.Context) int64 { return principalFrom(ctx).userID }

func UsernameFromContext(ctx context.Context) string { return principalFrom(ctx).username }

// TokenFromContext returns the id and expiry of the access token that authenticated the request.
func TokenFromContext(ctx context.Context) (string, time.Time) {
	p := principalFrom(ctx)
	return p.tokenID, p.expiresAt
}

// WithUserID marks ctx as authenticated for userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	p := principalFrom(ctx)
	p.userID = userID
	return withPrincipal(ctx, p)
}

// WithToken records the access token id and expiry on ctx.
func WithToken(ctx context.Context, jti string, expiresAt time.Time) context.Context {
	p := principalFrom(ctx)
	p.tokenID, p.expiresAt = jti, expiresAt
	return withPrincipal(ctx, p)
}
