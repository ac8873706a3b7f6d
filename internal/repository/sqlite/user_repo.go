package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository on SQLite.
type UserRepo struct {
	db  *DB
	now func() time.Time
}

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db, now: time.Now} }

const userColumns = `id, name, username, email, pwd_hash, salt_auth, refresh_token, created_at`

// Create inserts a new user row and fills CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, username, email, pwd_hash, salt_auth, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	created := r.now()
	_, err := r.db.SQL.ExecContext(ctx, q,
		u.ID.String(), u.Name, nullIfEmpty(u.Username), nullIfEmpty(u.Email), u.PwdHash, u.SaltAuth, toMillis(created),
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	u.CreatedAt = fromMillis(toMillis(created))
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id.String())
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email)
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username)
}

// Exists reports whether a user row with id is present.
func (r *UserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.SQL.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=?)`, id.String()).Scan(&ok)
	return ok, err
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u                      model.User
		username, email, token sql.NullString
		created                int64
	)
	err := r.db.SQL.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Name, &username, &email, &u.PwdHash, &u.SaltAuth, &token, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Username = username.String
	u.Email = email.String
	if token.Valid {
		u.RefreshToken = &token.String
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
