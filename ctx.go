package credentials

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-credentials/revision"
	"github.com/goliatone/go-router"
)

// DefaultContextKey is the router local the JWT middleware stores the token under.
const DefaultContextKey = "user"

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context. The
// local may hold the claims or the *jwt.Token set by the JWT middleware.
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	switch raw := ctx.Locals(key).(type) {
	case AuthClaims:
		return raw, raw != nil
	case *jwt.Token:
		return ClaimsFromToken(raw)
	}
	return nil, false
}

// AuthContextFromRouter returns the viewer used to phrase revisions.
func AuthContextFromRouter(ctx router.Context, key string) revision.AuthContext {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return AuthContextFromContext(ctx.Context())
	}
	if id, ok := ClaimsUserID(claims); ok {
		return revision.ActorContext(id)
	}
	return revision.Anonymous
}

// AuthContextFromContext reads the viewer from claims or the user stored in ctx.
func AuthContextFromContext(ctx context.Context) revision.AuthContext {
	if ctx == nil {
		return revision.Anonymous
	}
	if claims, ok := GetClaims(ctx); ok {
		if id, ok := ClaimsUserID(claims); ok {
			return revision.ActorContext(id)
		}
	}
	if user, ok := FromContext(ctx); ok {
		return revision.ActorContext(user.ID)
	}
	return revision.Anonymous
}
