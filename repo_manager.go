package roadside

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the identity repositories and transactions.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	// RefreshTokens is nil when refresh tokens are stateless.
	RefreshTokens() RefreshTokenStore
}

type mngr struct {
	db            *bun.DB
	users         Users
	refreshTokens RefreshTokenStore
}

// ManagerOption customizes the repository manager.
type ManagerOption func(*mngr)

// WithRefreshTokenStore enables server side refresh token rotation.
func WithRefreshTokenStore(store RefreshTokenStore) ManagerOption {
	return func(m *mngr) {
		m.refreshTokens = store
	}
}

// WithUsers overrides the identity store.
func WithUsers(users Users) ManagerOption {
	return func(m *mngr) {
		if users != nil {
			m.users = users
		}
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:    db,
		users: NewUsersRepository(db),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager needs a database")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RefreshTokens() RefreshTokenStore {
	return m.refreshTokens
}
