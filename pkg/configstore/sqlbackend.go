package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DefaultTable holds one row per committed revision.
const DefaultTable = "xrcfg_revisions"

// SQLBackend stores every revision in a PostgreSQL table and loads the
// newest one.
type SQLBackend struct {
	db    *sqlx.DB
	table string
}

// OpenSQLBackend connects to PostgreSQL using dsn.
func OpenSQLBackend(ctx context.Context, dsn string) (*SQLBackend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return NewSQLBackend(db, DefaultTable), nil
}

// NewSQLBackend wraps an open database handle.
func NewSQLBackend(db *sqlx.DB, table string) *SQLBackend {
	if table == "" {
		table = DefaultTable
	}
	return &SQLBackend{db: db, table: pq.QuoteIdentifier(table)}
}

// Close closes the database handle.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

// EnsureSchema creates the revision table when missing.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	commit_id   TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL,
	comment     TEXT NOT NULL DEFAULT '',
	config_text TEXT NOT NULL
)`, b.table)
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", b.table, err)
	}
	return nil
}

func (b *SQLBackend) Load(ctx context.Context) (string, error) {
	var text string
	query := fmt.Sprintf(`SELECT config_text FROM %s ORDER BY id DESC LIMIT 1`, b.table)
	err := b.db.GetContext(ctx, &text, query)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return text, nil
}

func (b *SQLBackend) Save(ctx context.Context, rev Revision) error {
	query := fmt.Sprintf(`INSERT INTO %s (commit_id, created_at, comment, config_text)
VALUES (:commit_id, :created_at, :comment, :config_text)`, b.table)
	if _, err := b.db.NamedExecContext(ctx, query, rev); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("save config: revision %s already stored", rev.ID)
		}
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Revisions returns up to limit stored revisions, newest first.
func (b *SQLBackend) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	var revs []Revision
	query := fmt.Sprintf(`SELECT commit_id, created_at, comment, config_text FROM %s
ORDER BY id DESC LIMIT $1`, b.table)
	if err := b.db.SelectContext(ctx, &revs, query, limit); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}
