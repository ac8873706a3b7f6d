package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var noteCols = []string{"id", "user_id", "title", "content", "created_at", "updated_at"}

func TestNoteRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNoteRepo(db)

	ctx := context.Background()
	ts := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	n := &model.Note{
		ID:      uuid.Must(uuid.NewV4()),
		UserID:  uuid.Must(uuid.NewV4()),
		Title:   "t",
		Content: "c",
	}

	mock.ExpectQuery(`INSERT INTO notes \(id, user_id, title, content\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING created_at, updated_at`).
		WithArgs(n.ID, n.UserID, "t", "c").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	require.NoError(t, r.Create(ctx, n))
	require.Equal(t, ts, n.CreatedAt)
	require.Equal(t, ts, n.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepo_ListByOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNoteRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)
	id1, id2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE user_id=\$1 ORDER BY created_at DESC, id DESC`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(noteCols).
			AddRow(id1, owner, "new", "c1", newer, newer).
			AddRow(id2, owner, "old", "c2", older, older))

	notes, err := r.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, id1, notes[0].ID)
	require.Equal(t, "old", notes[1].Title)

	// none: empty, not nil
	mock.ExpectQuery(`SELECT .* FROM notes WHERE user_id=\$1`).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(noteCols))
	notes, err = r.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, notes)
	require.Empty(t, notes)

	mock.ExpectQuery(`SELECT .* FROM notes WHERE user_id=\$1`).
		WithArgs(owner).
		WillReturnError(errors.New("db fail"))
	_, err = r.ListByOwner(ctx, owner)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepo_Get_ScopedByOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNoteRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	noteID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE id=\$1 AND user_id=\$2`).
		WithArgs(noteID, owner).
		WillReturnRows(pgxmock.NewRows(noteCols).AddRow(noteID, owner, "t", "c", ts, ts))
	n, err := r.Get(ctx, owner, noteID)
	require.NoError(t, err)
	require.Equal(t, noteID, n.ID)
	require.Equal(t, owner, n.UserID)

	mock.ExpectQuery(`SELECT .* FROM notes WHERE id=\$1 AND user_id=\$2`).
		WithArgs(noteID, owner).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, owner, noteID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepo_Update(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNoteRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	noteID := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()
	title := "new title"
	patch := model.NotePatch{Title: &title}

	mock.ExpectQuery(`UPDATE notes SET title = COALESCE\(\$3, title\), content = COALESCE\(\$4, content\), updated_at = now\(\) WHERE id=\$1 AND user_id=\$2 RETURNING id, user_id, title, content, created_at, updated_at`).
		WithArgs(noteID, owner, &title, (*string)(nil)).
		WillReturnRows(pgxmock.NewRows(noteCols).AddRow(noteID, owner, title, "old content", ts, ts))
	n, err := r.Update(ctx, owner, noteID, patch)
	require.NoError(t, err)
	require.Equal(t, title, n.Title)
	require.Equal(t, "old content", n.Content)

	mock.ExpectQuery(`UPDATE notes`).
		WithArgs(noteID, owner, &title, (*string)(nil)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Update(ctx, owner, noteID, patch)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewNoteRepo(db)

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	noteID := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM notes WHERE id=\$1 AND user_id=\$2`).
		WithArgs(noteID, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, owner, noteID))

	// second delete: nothing matched
	mock.ExpectExec(`DELETE FROM notes`).
		WithArgs(noteID, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, owner, noteID), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM notes`).
		WithArgs(noteID, owner).
		WillReturnError(errors.New("db fail"))
	err := r.Delete(ctx, owner, noteID)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
