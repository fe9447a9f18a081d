package roadside

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type sqlRefreshTokens struct {
	now func() time.Time
}

// NewSQLRefreshTokenStore keeps refresh token state in the refresh_tokens table.
func NewSQLRefreshTokenStore() RefreshTokenStore {
	return &sqlRefreshTokens{now: time.Now}
}

func (s *sqlRefreshTokens) Save(ctx context.Context, tx bun.IDB, record *RefreshTokenRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return NewInternalError(err, "could not store refresh token")
	}
	return nil
}

func (s *sqlRefreshTokens) IsActive(ctx context.Context, tx bun.IDB, tokenID uuid.UUID) (bool, error) {
	record := &RefreshTokenRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", tokenID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, NewInternalError(err, "could not load refresh token")
	}
	if record.RevokedAt != nil {
		return false, nil
	}
	return record.ExpiresAt.After(s.now()), nil
}

func (s *sqlRefreshTokens) Revoke(ctx context.Context, tx bun.IDB, tokenID uuid.UUID, replacedBy *uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*RefreshTokenRecord)(nil)).
		Set("revoked_at = ?", s.now().UTC()).
		Set("replaced_by = ?", replacedBy).
		Where("id = ?", tokenID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return NewInternalError(err, "could not revoke refresh token")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// already revoked or never stored: a replayed token
		return ErrInvalidToken
	}
	return nil
}

func (s *sqlRefreshTokens) RevokeAllForUser(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*RefreshTokenRecord)(nil)).
		Set("revoked_at = ?", s.now().UTC()).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return NewInternalError(err, "could not revoke refresh tokens")
	}
	return nil
}
