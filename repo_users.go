package roadside

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Registration groups the records created for a new user.
type Registration struct {
	User    *User
	Profile *UserProfile
	License *DriverLicense
	Badge   *OfficerBadge
}

// Users is the identity store.
type Users interface {
	repository.Repository[*User]
	NameResolver

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetWithProfile(ctx context.Context, id uuid.UUID) (*User, error)
	GetWithProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	Register(ctx context.Context, reg *Registration) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, reg *Registration) (*User, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	SetEnabledTx(ctx context.Context, tx bun.IDB, id uuid.UUID, enabled bool) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption customizes the users repository.
type UsersOption func(*users)

// WithUsersClock injects the clock used for created/updated timestamps.
func WithUsersClock(clock func() time.Time) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

// NewUsersRepository returns the bun backed identity store.
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	u := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// NormalizeEmail lower cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Profile").
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.mapReadError(err)
	}
	return record, nil
}

func (a *users) GetWithProfile(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetWithProfileTx(ctx, a.db, id)
}

func (a *users) GetWithProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Profile").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.mapReadError(err)
	}
	return record, nil
}

func (a *users) ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, NewInternalError(err, "could not check email")
	}
	return exists, nil
}

func (a *users) Register(ctx context.Context, reg *Registration) (*User, error) {
	var user *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = a.RegisterTx(ctx, tx, reg)
		return err
	})
	return user, err
}

// RegisterTx inserts the user and its optional profile and credential
// records. Unique violations surface as ErrDuplicateIdentity.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, reg *Registration) (*User, error) {
	if reg == nil || reg.User == nil {
		return nil, goerrors.New("registration must include a user", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	now := a.now().UTC()
	user := reg.User
	prepareUserDefaults(user, now)

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, mapWriteError(err, ErrDuplicateIdentity, "could not create user")
	}

	if p := reg.Profile; p != nil {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.UserID = created.ID
		if p.KYCStatus == "" {
			p.KYCStatus = KYCPending
		}
		p.CreatedAt, p.UpdatedAt = now, now
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			return nil, mapWriteError(err, ErrDuplicateIdentity, "could not create profile")
		}
		created.Profile = p
	}

	if l := reg.License; l != nil {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.UserID = created.ID
		l.CreatedAt = now
		if _, err := tx.NewInsert().Model(l).Exec(ctx); err != nil {
			return nil, mapWriteError(err, ErrCredentialInUse, "could not create driver license")
		}
	}

	if b := reg.Badge; b != nil {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.UserID = created.ID
		b.CreatedAt = now
		if _, err := tx.NewInsert().Model(b).Exec(ctx); err != nil {
			return nil, mapWriteError(err, ErrCredentialInUse, "could not create officer badge")
		}
	}

	return created, nil
}

func (a *users) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return a.SetEnabledTx(ctx, a.db, id, enabled)
}

func (a *users) SetEnabledTx(ctx context.Context, tx bun.IDB, id uuid.UUID, enabled bool) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("enabled = ?", enabled).
		Set("updated_at = ?", a.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return NewInternalError(err, "could not update user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DisplayNames resolves names for the given ids. Unknown ids are omitted.
func (a *users) DisplayNames(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = ""
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Relation("Profile").
		Where("?TableAlias.id IN (?)", bun.In(unique)).
		Scan(ctx)
	if err != nil {
		return nil, NewInternalError(err, "could not resolve user names")
	}

	names := make(map[uuid.UUID]string, len(records))
	for _, u := range records {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

func (a *users) mapReadError(err error) error {
	if isNoRows(err) || repository.IsRecordNotFound(err) {
		return ErrNotFound
	}
	return NewInternalError(err, "could not load user")
}

// mapWriteError turns a unique violation into the conflict the caller names.
func mapWriteError(err, conflict error, message string) error {
	if IsUniqueViolation(err) {
		return conflict
	}
	return NewInternalError(err, message)
}

func prepareUserDefaults(user *User, now time.Time) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = RoleDriver
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}
