package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store persists sessions and their audit trail. Writes to an existing
// session are guarded by the version column: a write whose expected
// version no longer matches fails with roadside.ErrConflict.
type Store interface {
	repository.TransactionManager

	CreateTx(ctx context.Context, tx bun.IDB, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	GetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Session, error)
	SaveTransitionTx(ctx context.Context, tx bun.IDB, s *Session, expectedVersion int64, t Transition) error
	UpdateDetailsTx(ctx context.Context, tx bun.IDB, s *Session, expectedVersion int64) error
	ListByDriver(ctx context.Context, driverID uuid.UUID, page Page) ([]*Session, int, error)
	ListByOfficer(ctx context.Context, officerID uuid.UUID, page Page) ([]*Session, int, error)
	ListByStatus(ctx context.Context, statuses []Status, page Page) ([]*Session, int, error)
	Transitions(ctx context.Context, sessionID uuid.UUID) ([]Transition, error)
	TransitionsTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) ([]Transition, error)
}

type store struct {
	db *bun.DB
}

var _ Store = (*store)(nil)

// NewStore returns the bun backed session store.
func NewStore(db *bun.DB) Store {
	return &store{db: db}
}

func (r *store) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return r.db.RunInTx(ctx, opts, f)
	}
}

// CreateTx inserts the session row and every audit entry it carries.
func (r *store) CreateTx(ctx context.Context, tx bun.IDB, s *Session) error {
	if s.Version == 0 {
		s.Version = 1
	}
	if _, err := tx.NewInsert().Model(s).Exec(ctx); err != nil {
		return roadside.NewInternalError(err, "could not create session")
	}
	for i := range s.Transitions {
		if _, err := tx.NewInsert().Model(&s.Transitions[i]).Exec(ctx); err != nil {
			return roadside.NewInternalError(err, "could not record session transition")
		}
	}
	return nil
}

func (r *store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.GetTx(ctx, r.db, id)
}

// GetTx loads the session with its audit trail.
func (r *store) GetTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Session, error) {
	s := &Session{}
	err := tx.NewSelect().
		Model(s).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roadside.ErrNotFound
		}
		return nil, roadside.NewInternalError(err, "could not load session")
	}

	s.Transitions, err = r.TransitionsTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveTransitionTx writes the mutable columns and appends t.
func (r *store) SaveTransitionTx(ctx context.Context, tx bun.IDB, s *Session, expectedVersion int64, t Transition) error {
	if err := r.updateVersioned(ctx, tx, s, expectedVersion,
		"status", "officer_id", "updated_at",
		"assigned_at", "started_at", "verified_at", "completed_at",
	); err != nil {
		return err
	}

	if _, err := tx.NewInsert().Model(&t).Exec(ctx); err != nil {
		if roadside.IsUniqueViolation(err) {
			return roadside.ErrConflict
		}
		return roadside.NewInternalError(err, "could not record session transition")
	}
	return nil
}

func (r *store) UpdateDetailsTx(ctx context.Context, tx bun.IDB, s *Session, expectedVersion int64) error {
	return r.updateVersioned(ctx, tx, s, expectedVersion,
		"address", "reason", "notes", "latitude", "longitude", "updated_at",
	)
}

func (r *store) updateVersioned(ctx context.Context, tx bun.IDB, s *Session, expectedVersion int64, columns ...string) error {
	s.Version = expectedVersion + 1
	res, err := tx.NewUpdate().
		Model(s).
		Column(append(columns, "version")...).
		Where("id = ?", s.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		s.Version = expectedVersion
		return roadside.NewInternalError(err, "could not update session")
	}

	n, err := res.RowsAffected()
	if err != nil {
		s.Version = expectedVersion
		return roadside.NewInternalError(err, "could not update session")
	}
	if n == 0 {
		s.Version = expectedVersion
		return roadside.ErrConflict
	}
	return nil
}

func (r *store) ListByDriver(ctx context.Context, driverID uuid.UUID, page Page) ([]*Session, int, error) {
	return r.list(ctx, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.driver_id = ?", driverID)
	})
}

func (r *store) ListByOfficer(ctx context.Context, officerID uuid.UUID, page Page) ([]*Session, int, error) {
	return r.list(ctx, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.officer_id = ?", officerID)
	})
}

func (r *store) ListByStatus(ctx context.Context, statuses []Status, page Page) ([]*Session, int, error) {
	if len(statuses) == 0 {
		return []*Session{}, 0, nil
	}
	return r.list(ctx, page, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.status IN (?)", bun.In(statuses))
	})
}

// list returns newest first. Audit trails are not loaded.
func (r *store) list(ctx context.Context, page Page, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*Session, int, error) {
	page = page.Normalize()
	var rows []*Session

	q := r.db.NewSelect().Model(&rows)
	q = filter(q)
	total, err := q.
		Order("created_at DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, roadside.NewInternalError(err, "could not list sessions")
	}
	return rows, total, nil
}

func (r *store) Transitions(ctx context.Context, sessionID uuid.UUID) ([]Transition, error) {
	return r.TransitionsTx(ctx, r.db, sessionID)
}

func (r *store) TransitionsTx(ctx context.Context, tx bun.IDB, sessionID uuid.UUID) ([]Transition, error) {
	var out []Transition
	err := tx.NewSelect().
		Model(&out).
		Where("?TableAlias.session_id = ?", sessionID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, roadside.NewInternalError(err, "could not load session transitions")
	}
	return out, nil
}
