package roadside

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const migrationsRoot = "data/sql/migrations"

// OpenDB opens a bun database. postgres:// and postgresql:// DSNs use pgx,
// anything else is handed to sqlite. The schema is not touched.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, dialect, err := openSQL(dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, dialect), nil
}

func openSQL(dsn string) (*sql.DB, schema.Dialect, error) {
	if isPostgresDSN(dsn) {
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqldb, pgdialect.New(), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		// every new connection would open an empty database
		sqldb.SetMaxOpenConns(1)
	}
	return sqldb, sqlitedialect.New(), nil
}

// PersistenceConfig feeds the persistence client.
type PersistenceConfig struct {
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c PersistenceConfig) GetDebug() bool { return c.Debug }

func (c PersistenceConfig) GetDriver() string {
	if isPostgresDSN(c.DSN) {
		return "pgx"
	}
	return sqliteshim.ShimName
}

func (c PersistenceConfig) GetServer() string { return c.DSN }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string { return "" }

// OpenMigratedDB opens the database through the persistence client, checks
// that every dialect ships the same migration set and applies the pending
// migrations for the active dialect.
func OpenMigratedDB(ctx context.Context, cfg PersistenceConfig, models ...any) (*bun.DB, error) {
	sqldb, dialect, err := openSQL(cfg.DSN)
	if err != nil {
		return nil, err
	}

	for _, model := range models {
		persistence.RegisterModel(model)
	}

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, NewInternalError(err, "could not create persistence client")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), migrationsRoot)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsRoot),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, NewInternalError(err, "migration dialects out of sync")
	}
	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, NewInternalError(err, "could not apply migrations")
	}

	return client.DB(), nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// CreateSchema creates the tables for models when missing. Tests use it on
// throwaway sqlite databases; deployments go through OpenMigratedDB.
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return NewInternalError(err, "could not create schema")
		}
	}
	return nil
}

const pgUniqueViolation = "23505"

// IsUniqueViolation recognizes unique constraint failures from postgres and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
