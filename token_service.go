package roadside

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl signs HS256 tokens with a process wide secret.
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption customizes the token service.
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock injects the clock used for iat/exp and validation.
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a TokenService from cfg.
func NewTokenService(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		now:        time.Now,
		logger:     defLogger,
	}
	if ts.accessTTL <= 0 {
		ts.accessTTL = 15 * time.Minute
	}
	if ts.refreshTTL <= 0 {
		ts.refreshTTL = 7 * 24 * time.Hour
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// AccessTokenTTL is the lifetime of access tokens.
func (ts *TokenServiceImpl) AccessTokenTTL() time.Duration {
	return ts.accessTTL
}

// IssueAccessToken signs a short lived token for user.
func (ts *TokenServiceImpl) IssueAccessToken(user *User) (string, time.Time, error) {
	return ts.issue(user, TokenKindAccess, ts.accessTTL)
}

// IssueRefreshToken signs a long lived token for user.
func (ts *TokenServiceImpl) IssueRefreshToken(user *User) (string, time.Time, error) {
	return ts.issue(user, TokenKindRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(user *User, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", time.Time{}, goerrors.New("user must not be empty", goerrors.CategoryInternal)
	}

	now := ts.now()
	expiresAt := now.Add(ttl)
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      user.ID.String(),
		UserRole: user.Role,
		Kind:     kind,
	}
	ensureTokenID(&claims.RegisteredClaims)

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// SignClaims signs arbitrary claims with the configured key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Validate checks signature, algorithm, expiry, issuer, audience and kind.
func (ts *TokenServiceImpl) Validate(tokenString string) (TokenSubject, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token with unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return TokenSubject{}, ErrTokenExpired
		}
		ts.logger.Debug("token validation failed", "error", err)
		return TokenSubject{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return TokenSubject{}, ErrInvalidToken
	}
	return subjectFromClaims(claims)
}

// ValidateKind validates the token and requires the given kind.
func (ts *TokenServiceImpl) ValidateKind(tokenString string, kind TokenKind) (TokenSubject, error) {
	subject, err := ts.Validate(tokenString)
	if err != nil {
		return TokenSubject{}, err
	}
	if subject.Kind != kind {
		ts.logger.Debug("token kind mismatch", "want", kind, "got", subject.Kind)
		return TokenSubject{}, ErrInvalidToken
	}
	return subject, nil
}

// ExtractUserIdentifier reads the subject without verifying the token.
// The result must not be trusted until Validate succeeds.
func (ts *TokenServiceImpl) ExtractUserIdentifier(tokenString string) (string, error) {
	claims := &JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func subjectFromClaims(claims *JWTClaims) (TokenSubject, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenSubject{}, ErrInvalidToken
	}
	if claims.UID != "" && claims.UID != claims.Subject {
		return TokenSubject{}, ErrInvalidToken
	}
	if !claims.Kind.IsValid() {
		return TokenSubject{}, ErrInvalidToken
	}

	subject := TokenSubject{
		UserID: userID,
		Role:   claims.UserRole,
		Kind:   claims.Kind,
	}
	if id, err := uuid.Parse(claims.ID); err == nil {
		subject.TokenID = id
	}
	if claims.ExpiresAt != nil {
		subject.ExpiresAt = claims.ExpiresAt.Time
	}
	return subject, nil
}
