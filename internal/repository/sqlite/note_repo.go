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

// NoteRepo implements NoteRepository on SQLite.
type NoteRepo struct {
	db  *DB
	now func() time.Time
}

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db, now: time.Now} }

const noteColumns = `id, user_id, title, content, created_at, updated_at`

// Create inserts a note and fills its timestamps.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	const q = `INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	ts := toMillis(r.now())
	if _, err := r.db.SQL.ExecContext(ctx, q, n.ID.String(), n.UserID.String(), n.Title, n.Content, ts, ts); err != nil {
		return err
	}
	n.CreatedAt, n.UpdatedAt = fromMillis(ts), fromMillis(ts)
	return nil
}

// ListByOwner returns all notes of ownerID, newest first.
func (r *NoteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	const q = `SELECT ` + noteColumns + ` FROM notes WHERE user_id=? ORDER BY created_at DESC, rowid DESC`
	rows, err := r.db.SQL.QueryContext(ctx, q, ownerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Get returns a single note by id, visible only to its owner.
func (r *NoteRepo) Get(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	const q = `SELECT ` + noteColumns + ` FROM notes WHERE id=? AND user_id=?`
	return notFoundOnNoRows(scanNote(r.db.SQL.QueryRowContext(ctx, q, noteID.String(), ownerID.String())))
}

// Update sets the supplied fields; nil fields keep their stored value.
func (r *NoteRepo) Update(ctx context.Context, ownerID, noteID uuid.UUID, patch model.NotePatch) (*model.Note, error) {
	const q = `
UPDATE notes
SET title = COALESCE(?, title), content = COALESCE(?, content), updated_at = ?
WHERE id=? AND user_id=?
RETURNING ` + noteColumns
	row := r.db.SQL.QueryRowContext(ctx, q,
		nullable(patch.Title), nullable(patch.Content), toMillis(r.now()), noteID.String(), ownerID.String(),
	)
	return notFoundOnNoRows(scanNote(row))
}

// Delete removes a note by (id, owner).
func (r *NoteRepo) Delete(ctx context.Context, ownerID, noteID uuid.UUID) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM notes WHERE id=? AND user_id=?`, noteID.String(), ownerID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanNote(s scanner) (*model.Note, error) {
	var (
		n                model.Note
		created, updated int64
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &created, &updated); err != nil {
		return nil, err
	}
	n.CreatedAt, n.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &n, nil
}

func notFoundOnNoRows(n *model.Note, err error) (*model.Note, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return n, err
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
