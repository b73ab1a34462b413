// Package postgres persists entity rows in PostgreSQL through database/sql
// and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"creatorhub/internal/infra/persistence"
	"creatorhub/pkg/domain"
)

var _ persistence.RowStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/creatorhub?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq        BIGSERIAL,
		kind       TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		owner_id   TEXT        NOT NULL,
		payload    JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
	`CREATE INDEX IF NOT EXISTS records_owner ON records (kind, owner_id, seq)`,
}

// Store is a RowStore backed by a Postgres database.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn (falling back to a local default), pings the
// server and ensures the records table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// ListRows implements persistence.RowStore.
func (s *Store) ListRows(ctx context.Context, kind domain.EntityType, ownerID string) ([]persistence.Row, error) {
	query := `SELECT id, owner_id, payload, created_at, updated_at FROM records WHERE kind = $1`
	args := []any{string(kind)}
	if ownerID != "" {
		query += ` AND owner_id = $2`
		args = append(args, ownerID)
	}
	query += ` ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()
	var out []persistence.Row
	for rows.Next() {
		row := persistence.Row{Kind: kind}
		if err := rows.Scan(&row.ID, &row.OwnerID, &row.Payload, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

// InsertRow implements persistence.RowStore.
func (s *Store) InsertRow(ctx context.Context, row persistence.Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records(kind, id, owner_id, payload, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6)`,
		string(row.Kind), row.ID, row.OwnerID, row.Payload, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", row.Kind, row.ID, err)
	}
	return nil
}

// UpdateRow implements persistence.RowStore. The row is locked for the
// duration of fn.
func (s *Store) UpdateRow(ctx context.Context, kind domain.EntityType, id string, fn func(persistence.Row) (persistence.Row, error)) (persistence.Row, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.Row{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current := persistence.Row{Kind: kind, ID: id}
	err = tx.QueryRowContext(ctx,
		`SELECT owner_id, payload, created_at, updated_at FROM records WHERE kind = $1 AND id = $2 FOR UPDATE`,
		string(kind), id).Scan(&current.OwnerID, &current.Payload, &current.CreatedAt, &current.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Row{}, persistence.NotFound(kind, id)
	}
	if err != nil {
		return persistence.Row{}, fmt.Errorf("select %s %s: %w", kind, id, err)
	}
	next, err := fn(current)
	if err != nil {
		return persistence.Row{}, err
	}
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET payload = $1, updated_at = $2 WHERE kind = $3 AND id = $4`,
		next.Payload, next.UpdatedAt, string(kind), id); err != nil {
		return persistence.Row{}, fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return persistence.Row{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	next.Kind, next.ID, next.CreatedAt = kind, id, current.CreatedAt
	return next, nil
}

// DeleteRow implements persistence.RowStore.
func (s *Store) DeleteRow(ctx context.Context, kind domain.EntityType, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return persistence.NotFound(kind, id)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
