package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
)

// MaxTitleLen is the longest accepted note title, in characters.
const MaxTitleLen = 255

// NoteService defines owner-scoped operations over notes.
// Absent and foreign-owned notes are both reported as errs.ErrNotFound.
type NoteService interface {
	// Create stores a new note owned by the caller.
	Create(ctx context.Context, id model.Identity, title, content string) (*model.Note, error)
	// ListOwned returns the caller's notes, newest first.
	ListOwned(ctx context.Context, id model.Identity) ([]model.Note, error)
	// GetOwned returns one of the caller's notes.
	GetOwned(ctx context.Context, id model.Identity, noteID string) (*model.Note, error)
	// UpdateOwned applies the supplied fields of patch.
	UpdateOwned(ctx context.Context, id model.Identity, noteID string, patch model.NotePatch) (*model.Note, error)
	// DeleteOwned removes one of the caller's notes.
	DeleteOwned(ctx context.Context, id model.Identity, noteID string) error
}

type NoteServiceImpl struct {
	repo repository.NoteRepository
}

// NewNoteService constructs NoteService.
func NewNoteService(repo repository.NoteRepository) *NoteServiceImpl {
	return &NoteServiceImpl{repo: repo}
}

// Create validates title and content and persists the note under the caller.
func (s *NoteServiceImpl) Create(ctx context.Context, id model.Identity, title, content string) (*model.Note, error) {
	if id.UserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	nid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	n := &model.Note{ID: nid, UserID: id.UserID, Title: strings.TrimSpace(title), Content: content}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// ListOwned returns all notes of the caller; never nil.
func (s *NoteServiceImpl) ListOwned(ctx context.Context, id model.Identity) ([]model.Note, error) {
	if id.UserID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	notes, err := s.repo.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []model.Note{}
	}
	return notes, nil
}

// GetOwned returns the note when the caller owns it.
func (s *NoteServiceImpl) GetOwned(ctx context.Context, id model.Identity, noteID string) (*model.Note, error) {
	nid, err := s.scope(id, noteID)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id.UserID, nid)
}

// UpdateOwned changes only the supplied fields. An empty patch returns the current note.
// Ownership is resolved before the patch is validated, so a note the caller
// cannot see is always errs.ErrNotFound.
func (s *NoteServiceImpl) UpdateOwned(ctx context.Context, id model.Identity, noteID string, patch model.NotePatch) (*model.Note, error) {
	nid, err := s.scope(id, noteID)
	if err != nil {
		return nil, err
	}
	cur, err := s.repo.Get(ctx, id.UserID, nid)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return cur, nil
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	if patch.Content != nil {
		if err := validateContent(*patch.Content); err != nil {
			return nil, err
		}
	}
	return s.repo.Update(ctx, id.UserID, nid, patch)
}

// DeleteOwned removes the note when the caller owns it.
func (s *NoteServiceImpl) DeleteOwned(ctx context.Context, id model.Identity, noteID string) error {
	nid, err := s.scope(id, noteID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id.UserID, nid)
}

// scope checks the caller and parses noteID; an unparsable id cannot name any note.
func (s *NoteServiceImpl) scope(id model.Identity, noteID string) (uuid.UUID, error) {
	if id.UserID == uuid.Nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	nid, err := uuid.FromString(noteID)
	if err != nil || nid == uuid.Nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return nid, nil
}

func validateTitle(title string) error {
	t := strings.TrimSpace(title)
	if t == "" {
		return errs.Invalid("title", "is required")
	}
	if utf8.RuneCountInString(t) > MaxTitleLen {
		return errs.Invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLen))
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.Invalid("content", "is required")
	}
	return nil
}
