package roadside

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

func (k TokenKind) IsValid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// JWTClaims is the claim set signed into every token.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string    `json:"uid"`
	UserRole UserRole  `json:"role"`
	Kind     TokenKind `json:"kind"`
}

// TokenSubject is what a validated token asserts.
type TokenSubject struct {
	UserID    uuid.UUID
	Role      UserRole
	Kind      TokenKind
	TokenID   uuid.UUID
	ExpiresAt time.Time
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil {
		return
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
