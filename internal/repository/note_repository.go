package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/notes-backend/internal/model"
)

// NoteRepo is the MySQL implementation of NoteStore.
type NoteRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewNoteRepo constructs a NoteRepo with the provided DB handle.
func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

const noteColumns = "note_id, user_id, note_title, note_content, created_on, last_update"

// Insert stores a new note.
func (r *NoteRepo) Insert(ctx context.Context, n *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		n.NoteID.String(), n.UserID.String(), n.Title, n.Content, n.CreatedOn, n.LastUpdate)
	return err
}

// FindByID fetches a note by id, but only if it belongs to ownerID.
func (r *NoteRepo) FindByID(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE note_id = ? AND user_id = ? LIMIT 1",
		noteID.String(), ownerID.String())
	var (
		n            model.Note
		nid, ownerIn string
	)
	if err := row.Scan(&nid, &ownerIn, &n.Title, &n.Content, &n.CreatedOn, &n.LastUpdate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return fillNoteIDs(&n, nid, ownerIn)
}

// ListByOwner returns all notes of ownerID, oldest first.
func (r *NoteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? ORDER BY created_on, note_id",
		ownerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Note{}
	for rows.Next() {
		var (
			n            model.Note
			nid, ownerIn string
		)
		if err := rows.Scan(&nid, &ownerIn, &n.Title, &n.Content, &n.CreatedOn, &n.LastUpdate); err != nil {
			return nil, err
		}
		note, err := fillNoteIDs(&n, nid, ownerIn)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites title and content and bumps last_update.
func (r *NoteRepo) Update(ctx context.Context, n *model.Note) error {
	n.LastUpdate = model.Today(time.Now())
	res, err := r.db.ExecContext(ctx,
		"UPDATE notes SET note_title = ?, note_content = ?, last_update = ? WHERE note_id = ? AND user_id = ?",
		n.Title, n.Content, n.LastUpdate, n.NoteID.String(), n.UserID.String())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNoteNotFound)
}

// Delete removes a note owned by ownerID.
func (r *NoteRepo) Delete(ctx context.Context, ownerID, noteID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM notes WHERE note_id = ? AND user_id = ?", noteID.String(), ownerID.String())
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNoteNotFound)
}

func fillNoteIDs(n *model.Note, noteID, ownerID string) (*model.Note, error) {
	var err error
	if n.NoteID, err = uuid.Parse(noteID); err != nil {
		return nil, err
	}
	if n.UserID, err = uuid.Parse(ownerID); err != nil {
		return nil, err
	}
	return n, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
