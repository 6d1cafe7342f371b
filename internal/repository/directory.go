package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/notes-backend/internal/model"
)

// UserDirectory is the lookup and persistence contract for user records.
// Insert and Update are deliberately separate: Insert never replaces an
// existing record and Update never creates one.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Insert(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
}

// NoteStore persists notes. Every lookup is scoped to the owning user.
type NoteStore interface {
	Insert(ctx context.Context, n *model.Note) error
	FindByID(ctx context.Context, ownerID, noteID uuid.UUID) (*model.Note, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Note, error)
	Update(ctx context.Context, n *model.Note) error
	Delete(ctx context.Context, ownerID, noteID uuid.UUID) error
}
