package roadside

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "Bearer"

// AuthResponse is returned by register, authenticate and refresh.
type AuthResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenType    string      `json:"tokenType"`
	ExpiresIn    int64       `json:"expiresIn"`
	User         UserSummary `json:"user"`
}

// Auther orchestrates registration, login, refresh and logout.
type Auther struct {
	repo              RepositoryManager
	tokens            TokenService
	hasher            PasswordHasher
	cfg               Config
	policy            AccessPolicy
	logger            Logger
	activitySink      ActivitySink
	now               func() time.Time
	registrationRoles map[UserRole]struct{}
	phoneRegion       string
	hashedIDs         bool

	dummyOnce sync.Once
	dummyHash string
}

// AutherOption customizes the Auther.
type AutherOption func(*Auther)

func WithAutherLogger(logger Logger) AutherOption {
	return func(a *Auther) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithAutherHasher(hasher PasswordHasher) AutherOption {
	return func(a *Auther) {
		if hasher != nil {
			a.hasher = hasher
		}
	}
}

// WithAutherActivitySink configures the sink for auth events.
func WithAutherActivitySink(sink ActivitySink) AutherOption {
	return func(a *Auther) {
		a.activitySink = NormalizeActivitySink(sink)
	}
}

func WithAutherClock(clock func() time.Time) AutherOption {
	return func(a *Auther) {
		if clock != nil {
			a.now = clock
		}
	}
}

func WithAutherAccessPolicy(policy AccessPolicy) AutherOption {
	return func(a *Auther) {
		if policy != nil {
			a.policy = policy
		}
	}
}

// WithRegistrationRoles replaces the roles open for self registration.
func WithRegistrationRoles(roles ...UserRole) AutherOption {
	return func(a *Auther) {
		a.registrationRoles = make(map[UserRole]struct{}, len(roles))
		for _, r := range roles {
			a.registrationRoles[r] = struct{}{}
		}
	}
}

// WithPhoneRegion sets the region used for numbers without a country code.
func WithPhoneRegion(region string) AutherOption {
	return func(a *Auther) {
		if region != "" {
			a.phoneRegion = region
		}
	}
}

// WithHashedUserIDs derives user ids from the email address.
func WithHashedUserIDs() AutherOption {
	return func(a *Auther) {
		a.hashedIDs = true
	}
}

// NewAuther wires the orchestrator. The hasher defaults to bcrypt at the
// configured cost.
func NewAuther(repo RepositoryManager, tokens TokenService, cfg Config, opts ...AutherOption) *Auther {
	a := &Auther{
		repo:         repo,
		tokens:       tokens,
		hasher:       NewBcryptHasher(cfg.GetBcryptCost()),
		cfg:          cfg,
		policy:       DefaultAccessPolicy(),
		logger:       defLogger,
		activitySink: noopActivitySink{},
		now:          time.Now,
		registrationRoles: map[UserRole]struct{}{
			RoleDriver:  {},
			RoleOfficer: {},
		},
		phoneRegion: DefaultPhoneRegion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// TokenService returns the token service used by the Auther.
func (a *Auther) TokenService() TokenService {
	return a.tokens
}

// Register creates a user and issues its first token pair. The existence
// check, inserts and token issuance share one transaction.
func (a *Auther) Register(ctx context.Context, w CredentialWriter, req RegisterRequest) (*AuthResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	role := RoleDriver
	if req.Role != "" {
		role, _ = ParseRole(req.Role)
	}
	if _, ok := a.registrationRoles[role]; !ok {
		return nil, ErrRegistrationRole
	}

	phone, err := NormalizePhone(req.Phone, a.phoneRegion)
	if err != nil {
		return nil, NewValidationError(err)
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewInternalError(err, "could not hash password")
	}

	reg := a.buildRegistration(req, role, phone, hash)

	var (
		resp    *AuthResponse
		pending *RefreshTokenRecord
	)
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := a.repo.Users().ExistsByEmailTx(ctx, tx, req.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdentity
		}

		user, err := a.repo.Users().RegisterTx(ctx, tx, reg)
		if err != nil {
			return err
		}

		resp, pending, err = a.issuePairTx(ctx, tx, user)
		return err
	})
	if err == nil {
		err = a.saveDetached(ctx, pending)
	}
	if err != nil {
		a.logger.Info("registration failed", "email", req.Email, "error", err)
		return nil, a.mapTxError(err, "could not register user")
	}

	a.deliver(w, resp)
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventRegistered,
		Actor:     ActorRef{ID: resp.User.ID.String(), Type: string(resp.User.Role)},
		UserID:    resp.User.ID.String(),
	})
	return resp, nil
}

func (a *Auther) buildRegistration(req RegisterRequest, role UserRole, phone, hash string) *Registration {
	user := &User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Enabled:      true,
	}
	if a.hashedIDs {
		if id, err := hashid.NewUUID(req.Email); err == nil {
			user.ID = id
		}
	}

	reg := &Registration{
		User: user,
		Profile: &UserProfile{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       phone,
			DateOfBirth: req.DateOfBirth,
			KYCStatus:   KYCPending,
		},
	}

	if req.License != nil && role == RoleDriver {
		reg.License = &DriverLicense{
			LicenseNumber:  req.License.Number,
			State:          req.License.State,
			LicenseClass:   req.License.Class,
			Restrictions:   req.License.Restrictions,
			ExpirationDate: req.License.ExpirationDate,
		}
	}
	if req.Badge != nil && role == RoleOfficer {
		reg.Badge = &OfficerBadge{
			BadgeNumber:  req.Badge.Number,
			Department:   req.Badge.Department,
			Rank:         req.Badge.Rank,
			Jurisdiction: req.Badge.Jurisdiction,
		}
	}
	return reg
}

// Authenticate verifies credentials. Unknown emails and wrong passwords
// both fail with ErrInvalidCredentials.
func (a *Auther) Authenticate(ctx context.Context, w CredentialWriter, email, password string) (*AuthResponse, error) {
	email = NormalizeEmail(email)

	user, err := a.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		// keep timing close to the known-user path
		_ = a.hasher.Compare(password, a.dummyPasswordHash())
		a.loginFailed(ctx, email, "", ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := a.hasher.Compare(password, user.PasswordHash); err != nil {
		if !IsInvalidCredentials(err) {
			a.logger.Error("password comparison error", "user_id", user.ID, "error", err)
		}
		a.loginFailed(ctx, email, user.ID.String(), ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		a.loginFailed(ctx, email, user.ID.String(), ErrAccountDisabled)
		return nil, ErrAccountDisabled
	}

	var (
		resp    *AuthResponse
		pending *RefreshTokenRecord
	)
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		resp, pending, err = a.issuePairTx(ctx, tx, user)
		return err
	})
	if err == nil {
		err = a.saveDetached(ctx, pending)
	}
	if err != nil {
		return nil, a.mapTxError(err, "could not issue tokens")
	}

	a.deliver(w, resp)
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorFromUser(user).Ref(),
		UserID:    user.ID.String(),
	})
	return resp, nil
}

// Refresh exchanges a refresh token for a new token pair. With a refresh
// token store configured the presented token is revoked and can not be
// replayed. Every failure is ErrInvalidToken.
func (a *Auther) Refresh(ctx context.Context, w CredentialWriter, refreshToken string) (*AuthResponse, error) {
	claimed, err := a.tokens.ExtractUserIdentifier(refreshToken)
	if err != nil {
		return nil, a.refreshFailed(ctx, "", err)
	}

	subject, err := a.tokens.ValidateKind(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, a.refreshFailed(ctx, claimed, err)
	}
	if subject.UserID.String() != claimed {
		return nil, a.refreshFailed(ctx, claimed, ErrInvalidToken)
	}

	var (
		resp    *AuthResponse
		pending *RefreshTokenRecord
	)
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := a.repo.Users().GetWithProfileTx(ctx, tx, subject.UserID)
		if err != nil {
			if IsNotFound(err) {
				return ErrInvalidToken
			}
			return err
		}
		if !user.Enabled {
			return ErrInvalidToken
		}

		store := a.repo.RefreshTokens()
		if store != nil {
			active, err := store.IsActive(ctx, tx, subject.TokenID)
			if err != nil {
				return err
			}
			if !active {
				return ErrInvalidToken
			}
		}

		resp, pending, err = a.issuePairTx(ctx, tx, user)
		if err != nil {
			return err
		}

		if store != nil {
			return store.Revoke(ctx, tx, subject.TokenID, &pending.ID)
		}
		return nil
	})
	if err == nil {
		err = a.saveDetached(ctx, pending)
	}
	if err != nil {
		if IsInvalidToken(err) {
			return nil, a.refreshFailed(ctx, claimed, err)
		}
		return nil, a.mapTxError(err, "could not refresh tokens")
	}

	a.deliver(w, resp)
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		Actor:     ActorRef{ID: resp.User.ID.String(), Type: string(resp.User.Role)},
		UserID:    resp.User.ID.String(),
	})
	return resp, nil
}

// Logout clears the access cookie. With a refresh token store configured,
// the given refresh token is revoked as well.
func (a *Auther) Logout(ctx context.Context, w CredentialWriter, refreshToken string) error {
	if w != nil {
		w.ClearAccessToken()
	}

	var userID string
	if store := a.repo.RefreshTokens(); store != nil && refreshToken != "" {
		subject, err := a.tokens.ValidateKind(refreshToken, TokenKindRefresh)
		if err == nil {
			userID = subject.UserID.String()
			err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				return store.Revoke(ctx, tx, subject.TokenID, nil)
			})
			if err != nil && !IsInvalidToken(err) {
				return err
			}
		}
	}

	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		Actor:     ActorRef{ID: userID, Type: "user"},
		UserID:    userID,
	})
	return nil
}

// CurrentUser returns the public summary of actor.
func (a *Auther) CurrentUser(ctx context.Context, actor Actor) (UserSummary, error) {
	if actor.IsZero() {
		return UserSummary{}, ErrUnauthenticated
	}
	user, err := a.repo.Users().GetWithProfile(ctx, actor.ID)
	if err != nil {
		if IsNotFound(err) {
			return UserSummary{}, ErrUnauthenticated
		}
		return UserSummary{}, err
	}
	return user.Summary(), nil
}

// ResolveActor validates an access token and loads the enabled user it names.
func (a *Auther) ResolveActor(ctx context.Context, accessToken string) (Actor, error) {
	subject, err := a.tokens.ValidateKind(accessToken, TokenKindAccess)
	if err != nil {
		return Actor{}, err
	}
	user, err := a.repo.Users().GetWithProfile(ctx, subject.UserID)
	if err != nil {
		if IsNotFound(err) {
			return Actor{}, ErrInvalidToken
		}
		return Actor{}, err
	}
	if !user.Enabled {
		return Actor{}, ErrAccountDisabled
	}
	return ActorFromUser(user), nil
}

// DeactivateUser disables a user and revokes its refresh tokens. Admin only.
func (a *Auther) DeactivateUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if err := a.policy.RequireRole(ActionUserDeactivate, actor); err != nil {
		return err
	}

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.repo.Users().SetEnabledTx(ctx, tx, userID, false); err != nil {
			return err
		}
		if store := a.repo.RefreshTokens(); store != nil {
			return store.RevokeAllForUser(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		return a.mapTxError(err, "could not deactivate user")
	}

	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventUserDeactivated,
		Actor:     actor.Ref(),
		UserID:    userID.String(),
	})
	return nil
}

// issuePairTx mints an access and refresh token for user. With a store
// configured the refresh record is returned; it is already saved through tx
// unless the store is detached.
func (a *Auther) issuePairTx(ctx context.Context, tx bun.IDB, user *User) (*AuthResponse, *RefreshTokenRecord, error) {
	access, _, err := a.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, nil, err
	}
	refresh, refreshExpiresAt, err := a.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, nil, err
	}

	var record *RefreshTokenRecord
	if store := a.repo.RefreshTokens(); store != nil {
		subject, err := a.tokens.ValidateKind(refresh, TokenKindRefresh)
		if err != nil {
			return nil, nil, err
		}
		record = &RefreshTokenRecord{
			ID:        subject.TokenID,
			UserID:    user.ID,
			ExpiresAt: refreshExpiresAt.UTC(),
			CreatedAt: a.now().UTC(),
		}
		if !isDetached(store) {
			if err := store.Save(ctx, tx, record); err != nil {
				return nil, nil, err
			}
		}
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(a.tokens.AccessTokenTTL() / time.Second),
		User:         user.Summary(),
	}, record, nil
}

// saveDetached stores a committed refresh record in a detached store.
func (a *Auther) saveDetached(ctx context.Context, record *RefreshTokenRecord) error {
	store := a.repo.RefreshTokens()
	if record == nil || store == nil || !isDetached(store) {
		return nil
	}
	return store.Save(ctx, nil, record)
}

func (a *Auther) deliver(w CredentialWriter, resp *AuthResponse) {
	if w == nil || resp == nil {
		return
	}
	w.SetAccessToken(resp.AccessToken, a.cfg.GetCookieMaxAge())
}

func (a *Auther) dummyPasswordHash() string {
	a.dummyOnce.Do(func() {
		h, err := a.hasher.Hash(uuid.NewString())
		if err != nil {
			a.logger.Error("could not prepare dummy hash", "error", err)
		}
		a.dummyHash = h
	})
	return a.dummyHash
}

func (a *Auther) loginFailed(ctx context.Context, email, userID string, err error) {
	a.logger.Info("login failed", "email", email, "error", err)
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{ID: userID, Type: "unknown"},
		UserID:    userID,
		Metadata: map[string]any{
			"email": email,
			"error": err.Error(),
		},
	})
}

func (a *Auther) refreshFailed(ctx context.Context, claimed string, err error) error {
	a.logger.Info("refresh failed", "claimed_user", claimed, "error", err)
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventRefreshFailure,
		Actor:     ActorRef{ID: claimed, Type: "unknown"},
		UserID:    claimed,
		Metadata:  map[string]any{"error": err.Error()},
	})
	return ErrInvalidToken
}

// mapTxError keeps domain errors intact and wraps anything else.
func (a *Auther) mapTxError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	a.logger.Error(message, "error", err)
	return NewInternalError(err, message)
}

func (a *Auther) emit(ctx context.Context, event ActivityEvent) {
	RecordActivity(ctx, a.activitySink, a.logger, a.now, event)
}
