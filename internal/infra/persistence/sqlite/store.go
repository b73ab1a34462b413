// Package sqlite persists entity rows in a single SQLite table using the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"creatorhub/internal/infra/persistence"
	"creatorhub/pkg/domain"
)

var _ persistence.RowStore = (*Store)(nil)

const defaultPath = "creatorhub.db"

const schema = `CREATE TABLE IF NOT EXISTS records (
	kind       TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	owner_id   TEXT    NOT NULL,
	payload    BLOB    NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS records_owner ON records (kind, owner_id, created_at)`

// Store is a RowStore backed by one SQLite file.
type Store struct {
	db    *sql.DB
	path  string
	retry retryConfig
}

// NewStore opens (creating if needed) the database at path. ":memory:" keeps
// everything in process.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &Store{db: db, path: path, retry: defaultRetryConfig}, nil
}

// ListRows implements persistence.RowStore.
func (s *Store) ListRows(ctx context.Context, kind domain.EntityType, ownerID string) ([]persistence.Row, error) {
	query := `SELECT id, owner_id, payload, created_at, updated_at FROM records WHERE kind = ?`
	args := []any{string(kind)}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at, rowid`

	var out []persistence.Row
	err := withRetry(ctx, s.retry, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			row := persistence.Row{Kind: kind}
			var created, updated int64
			if err := rows.Scan(&row.ID, &row.OwnerID, &row.Payload, &created, &updated); err != nil {
				return fmt.Errorf("scan record: %w", err)
			}
			row.CreatedAt = fromNanos(created)
			row.UpdatedAt = fromNanos(updated)
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// InsertRow implements persistence.RowStore.
func (s *Store) InsertRow(ctx context.Context, row persistence.Row) error {
	err := withRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO records(kind, id, owner_id, payload, created_at, updated_at) VALUES(?,?,?,?,?,?)`,
			string(row.Kind), row.ID, row.OwnerID, row.Payload, row.CreatedAt.UnixNano(), row.UpdatedAt.UnixNano())
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", row.Kind, row.ID, err)
	}
	return nil
}

// UpdateRow implements persistence.RowStore.
func (s *Store) UpdateRow(ctx context.Context, kind domain.EntityType, id string, fn func(persistence.Row) (persistence.Row, error)) (persistence.Row, error) {
	var out persistence.Row
	err := withRetry(ctx, s.retry, func() (retErr error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if retErr != nil {
				_ = tx.Rollback()
			}
		}()
		current := persistence.Row{Kind: kind, ID: id}
		var created, updated int64
		err = tx.QueryRowContext(ctx,
			`SELECT owner_id, payload, created_at, updated_at FROM records WHERE kind = ? AND id = ?`,
			string(kind), id).Scan(&current.OwnerID, &current.Payload, &created, &updated)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NotFound(kind, id)
		}
		if err != nil {
			return err
		}
		current.CreatedAt = fromNanos(created)
		current.UpdatedAt = fromNanos(updated)
		next, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET payload = ?, updated_at = ? WHERE kind = ? AND id = ?`,
			next.Payload, next.UpdatedAt.UnixNano(), string(kind), id); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		next.Kind, next.ID, next.CreatedAt = kind, id, current.CreatedAt
		out = next
		return nil
	})
	if err != nil {
		return persistence.Row{}, err
	}
	return out, nil
}

// DeleteRow implements persistence.RowStore.
func (s *Store) DeleteRow(ctx context.Context, kind domain.EntityType, id string) error {
	var affected int64
	err := withRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if affected == 0 {
		return persistence.NotFound(kind, id)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
