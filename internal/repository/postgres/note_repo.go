package postgres

import (
	"context"
	"errors"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

// Create inserts a note and fills its timestamps from the database clock.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	const q = `
INSERT INTO notes (id, user_id, title, content)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at`
	return r.db.Pool.QueryRow(ctx, q, n.ID, n.UserID, n.Title, n.Content).Scan(&n.CreatedAt, &n.UpdatedAt)
}

// ListByOwner returns all notes of ownerID, newest first.
func (r *NoteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at
FROM notes
WHERE user_id=$1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		var n model.Note
		if err = rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Get returns a single note by id, visible only to its owner.
func (r *NoteRepo) Get(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at
FROM notes WHERE id=$1 AND user_id=$2`
	return scanNote(r.db.Pool.QueryRow(ctx, q, noteID, ownerID))
}

// Update sets the supplied fields; nil fields keep their stored value.
func (r *NoteRepo) Update(ctx context.Context, ownerID, noteID uuid.UUID, patch model.NotePatch) (*model.Note, error) {
	const q = `
UPDATE notes
SET title = COALESCE($3, title), content = COALESCE($4, content), updated_at = now()
WHERE id=$1 AND user_id=$2
RETURNING id, user_id, title, content, created_at, updated_at`
	return scanNote(r.db.Pool.QueryRow(ctx, q, noteID, ownerID, patch.Title, patch.Content))
}

// Delete removes a note by (id, owner).
func (r *NoteRepo) Delete(ctx context.Context, ownerID, noteID uuid.UUID) error {
	const q = `DELETE FROM notes WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, noteID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (*model.Note, error) {
	var n model.Note
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
