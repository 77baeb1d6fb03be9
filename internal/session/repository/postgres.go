package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStorage stores client session values in the console_storage table.
type PostgresStorage struct {
	db   *sql.DB
	ttl  time.Duration
	nowF func() time.Time
}

// NewPostgresStorage returns a Storage that uses db. Rows expire after ttl; ttl <= 0 keeps them until removed.
func NewPostgresStorage(db *sql.DB, ttl time.Duration) *PostgresStorage {
	return &PostgresStorage{db: db, ttl: ttl, nowF: time.Now}
}

// Get returns the value for key if the row exists and has not expired.
// It returns an error only for database failures, not for missing rows.
func (s *PostgresStorage) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM console_storage
		 WHERE client_id = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > $3)`,
		clientID, key, s.nowF().UTC(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select console_storage: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *PostgresStorage) Set(ctx context.Context, clientID, key, value string) error {
	now := s.nowF().UTC()
	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO console_storage (client_id, key, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (client_id, key) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		clientID, key, value, expiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert console_storage: %w", err)
	}
	return nil
}

// Remove deletes keys in a single transaction.
func (s *PostgresStorage) Remove(ctx context.Context, clientID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM console_storage WHERE client_id = $1 AND key = $2`, clientID, k); err != nil {
			return fmt.Errorf("delete console_storage: %w", err)
		}
	}
	return tx.Commit()
}

// Ping checks the database connection.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DeleteExpired removes expired rows and returns how many were deleted.
func (s *PostgresStorage) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM console_storage WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.nowF().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
