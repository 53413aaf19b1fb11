package credentials

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-credentials/revision"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	user := &User{ID: uuid.New()}
	got, ok := FromContext(WithContext(context.Background(), user))
	require.True(t, ok)
	assert.Same(t, user, got)

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestGetClaims(t *testing.T) {
	tests := []struct {
		name     string
		setupCtx func() context.Context
		wantUID  string
		wantOK   bool
	}{
		{
			name: "should return claims when present in context",
			setupCtx: func() context.Context {
				return WithClaimsContext(context.Background(), &JWTClaims{UID: "uid-1"})
			},
			wantUID: "uid-1",
			wantOK:  true,
		},
		{
			name:     "should return false when claims are missing",
			setupCtx: context.Background,
			wantOK:   false,
		},
		{
			name: "should return false for a value of the wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), claimsCtxKey, "not claims")
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := GetClaims(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantUID, claims.UserID())
			}
		})
	}
}

func TestGetRouterClaims(t *testing.T) {
	uid := uuid.NewString()

	tests := []struct {
		name    string
		local   any
		wantUID string
		wantOK  bool
	}{
		{
			name:    "claims stored directly",
			local:   &JWTClaims{UID: uid},
			wantUID: uid,
			wantOK:  true,
		},
		{
			name:    "token with registered claims",
			local:   &jwt.Token{Claims: &JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: uid}}},
			wantUID: uid,
			wantOK:  true,
		},
		{
			name:    "token with map claims",
			local:   &jwt.Token{Claims: jwt.MapClaims{"uid": uid, "sub": "ignored"}},
			wantUID: uid,
			wantOK:  true,
		},
		{
			name:    "map claims fall back to subject",
			local:   &jwt.Token{Claims: jwt.MapClaims{"sub": uid}},
			wantUID: uid,
			wantOK:  true,
		},
		{
			name:   "unrelated local",
			local:  "user",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := router.NewMockContext()
			ctx.LocalsMock[DefaultContextKey] = tt.local

			claims, ok := GetRouterClaims(ctx, "")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantUID, claims.UserID())
			}
		})
	}
}

func TestGetRouterClaimsCustomKey(t *testing.T) {
	ctx := router.NewMockContext()
	ctx.LocalsMock["jwt"] = &JWTClaims{UID: "abc"}

	_, ok := GetRouterClaims(ctx, "")
	assert.False(t, ok)

	claims, ok := GetRouterClaims(ctx, "jwt")
	require.True(t, ok)
	assert.Equal(t, "abc", claims.UserID())
}

func TestAuthContextFromRouter(t *testing.T) {
	id := uuid.New()

	ctx := router.NewMockContext()
	ctx.LocalsMock[DefaultContextKey] = &JWTClaims{UID: id.String()}

	auth := AuthContextFromRouter(ctx, "")
	got, ok := auth.CurrentActorID()
	require.True(t, ok)
	assert.Equal(t, id, got)

	bad := router.NewMockContext()
	bad.LocalsMock[DefaultContextKey] = &JWTClaims{UID: "not-a-uuid"}
	assert.Equal(t, revision.Anonymous, AuthContextFromRouter(bad, ""))
}

func TestAuthContextFromRouterFallsBackToContext(t *testing.T) {
	user := &User{ID: uuid.New()}

	ctx := router.NewMockContext()
	ctx.On("Context").Return(WithContext(context.Background(), user))

	auth := AuthContextFromRouter(ctx, "")
	got, ok := auth.CurrentActorID()
	require.True(t, ok)
	assert.Equal(t, user.ID, got)
	ctx.AssertExpectations(t)
}

func TestAuthContextFromContext(t *testing.T) {
	claimsID := uuid.New()
	userID := uuid.New()

	ctx := WithContext(context.Background(), &User{ID: userID})
	got, ok := AuthContextFromContext(ctx).CurrentActorID()
	require.True(t, ok)
	assert.Equal(t, userID, got)

	ctx = WithClaimsContext(ctx, &JWTClaims{UID: claimsID.String()})
	got, ok = AuthContextFromContext(ctx).CurrentActorID()
	require.True(t, ok)
	assert.Equal(t, claimsID, got, "claims take precedence over the stored user")

	var missing context.Context
	assert.False(t, AuthContextFromContext(missing).IsAuthenticated())
	assert.False(t, AuthContextFromContext(context.Background()).IsAuthenticated())
}
