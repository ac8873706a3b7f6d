package repository

import (
	"context"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// NoteRepository stores notes. Every method is keyed by the owner: a note that
// exists under another owner is reported as errs.ErrNotFound.
type NoteRepository interface {
	// Create inserts n and fills its timestamps.
	Create(ctx context.Context, n *model.Note) error

	// ListByOwner returns the owner's notes, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error)

	// Get returns a single note by (id, owner).
	Get(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error)

	// Update applies patch to the note by (id, owner) in one statement.
	Update(ctx context.Context, ownerID, noteID uuid.UUID, patch model.NotePatch) (*model.Note, error)

	// Delete removes the note by (id, owner).
	Delete(ctx context.Context, ownerID, noteID uuid.UUID) error
}
