package limiter

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLite is the limiter for the SQLite store. Timestamps are unix milliseconds.
type SQLite struct {
	db     *sql.DB
	policy Policy
	now    func() time.Time
}

// NewSQLite constructs a limiter over a migrated SQLite handle.
func NewSQLite(db *sql.DB, p Policy) *SQLite {
	return &SQLite{db: db, policy: p, now: time.Now}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *SQLite) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	var blockedUntil int64
	err := l.db.QueryRowContext(ctx,
		`SELECT blocked_until FROM auth_limiter WHERE login=? AND ip_hash=?`, login, ipHash,
	).Scan(&blockedUntil)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	until := time.UnixMilli(blockedUntil)
	if now := l.now(); until.After(now) {
		return false, until.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (login, ip).
func (l *SQLite) Success(ctx context.Context, login string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES (?, ?, 0, 0, ?)
ON CONFLICT (login, ip_hash)
DO UPDATE SET fail_count=0, blocked_until=0, updated_at=excluded.updated_at`
	_, err := l.db.ExecContext(ctx, q, login, ipHash, l.now().UnixMilli())
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *SQLite) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (login, ip_hash, fail_count, blocked_until, updated_at)
VALUES (?, ?, 1, 0, ?)
ON CONFLICT (login, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN excluded.updated_at - auth_limiter.updated_at > ? THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = excluded.updated_at
RETURNING fail_count`
	now := l.now()
	var fails int
	if err := l.db.QueryRowContext(ctx, q, login, ipHash, now.UnixMilli(), l.policy.Window.Milliseconds()).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.policy.MaxFails {
		return false, 0, nil
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE auth_limiter SET blocked_until=? WHERE login=? AND ip_hash=?`,
		now.Add(l.policy.BlockFor).UnixMilli(), login, ipHash,
	)
	if err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
