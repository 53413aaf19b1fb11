package credentials

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims identifies the signed in user.
type AuthClaims interface {
	Subject() string
	UserID() string
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

type mapClaims jwt.MapClaims

func (m mapClaims) Subject() string {
	sub, _ := jwt.MapClaims(m).GetSubject()
	return sub
}

func (m mapClaims) UserID() string {
	if uid, ok := m["uid"].(string); ok && uid != "" {
		return uid
	}
	return m.Subject()
}

// ClaimsFromToken adapts a parsed token to AuthClaims.
func ClaimsFromToken(token *jwt.Token) (AuthClaims, bool) {
	if token == nil {
		return nil, false
	}
	switch claims := token.Claims.(type) {
	case *JWTClaims:
		return claims, claims != nil
	case jwt.MapClaims:
		return mapClaims(claims), claims != nil
	}
	return nil, false
}

// ClaimsUserID parses the user id carried by claims.
func ClaimsUserID(claims AuthClaims) (uuid.UUID, bool) {
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID())
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
