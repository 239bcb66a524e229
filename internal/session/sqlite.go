package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements [Store] on the sessions table, for deployments where
// authenticated sessions must survive process restarts.
//
// Requires migrations to have been applied (see shared.RunMigrations).
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore creates a session store backed by the given database.
func NewSQLiteStore(db *sql.DB, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: ttl}
}

// Get implements [Store.Get]. Expired rows are treated as absent.
func (s *SQLiteStore) Get(ctx context.Context, sid, key string) ([]byte, error) {
	query := `
		SELECT value FROM sessions
		WHERE sid = ? AND key = ? AND expires_at > ?
	`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, sid, key, time.Now()).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session value: %w", err)
	}

	return value, nil
}

// Put implements [Store.Put]. The write is a single upsert, so concurrent
// writers for the same key last-write-win atomically.
func (s *SQLiteStore) Put(ctx context.Context, sid, key string, value []byte) error {
	query := `
		INSERT INTO sessions (sid, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (sid, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query, sid, key, value, now.Add(s.ttl), now); err != nil {
		return fmt.Errorf("failed to store session value: %w", err)
	}

	return nil
}

// Delete implements [Store.Delete].
func (s *SQLiteStore) Delete(ctx context.Context, sid, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE sid = ? AND key = ?", sid, key); err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// Prune removes expired session rows. Intended to run periodically or at startup.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return result.RowsAffected()
}
