package roadside

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Logger is the logging contract used across the module. Args are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds token, cookie and hashing settings.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetCookieName() string
	GetCookieMaxAge() time.Duration
	GetCookieSecure() bool
	GetCookieSameSite() string
	GetBcryptCost() int
}

// PasswordHasher derives and verifies password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
}

// TokenService issues and validates access and refresh tokens.
type TokenService interface {
	IssueAccessToken(user *User) (string, time.Time, error)
	IssueRefreshToken(user *User) (string, time.Time, error)
	Validate(token string) (TokenSubject, error)
	ValidateKind(token string, kind TokenKind) (TokenSubject, error)
	ExtractUserIdentifier(token string) (string, error)
	AccessTokenTTL() time.Duration
}

// CredentialWriter delivers and clears the access token on the transport.
type CredentialWriter interface {
	SetAccessToken(token string, maxAge time.Duration)
	ClearAccessToken()
}

// RefreshTokenStore keeps server side state for issued refresh tokens.
// When configured, a refresh token can be used at most once.
type RefreshTokenStore interface {
	Save(ctx context.Context, tx bun.IDB, record *RefreshTokenRecord) error
	IsActive(ctx context.Context, tx bun.IDB, tokenID uuid.UUID) (bool, error)
	Revoke(ctx context.Context, tx bun.IDB, tokenID uuid.UUID, replacedBy *uuid.UUID) error
	RevokeAllForUser(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

// DetachedRefreshTokenStore is a RefreshTokenStore that does not write
// through the SQL transaction. New records are saved after commit.
type DetachedRefreshTokenStore interface {
	RefreshTokenStore
	Detached() bool
}

func isDetached(store RefreshTokenStore) bool {
	d, ok := store.(DetachedRefreshTokenStore)
	return ok && d.Detached()
}

// NameResolver turns user ids into display names.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]string, error)
}
