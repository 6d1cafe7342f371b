package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/notes-backend/internal/model"
)

// MemoryUserRepo is an in-process UserDirectory. It enforces the same
// uniqueness rules as the database-backed implementations and hands out
// copies so callers cannot mutate stored records.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]model.User
	names map[string]uuid.UUID
	mails map[string]uuid.UUID
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:  make(map[uuid.UUID]model.User),
		names: make(map[string]uuid.UUID),
		mails: make(map[string]uuid.UUID),
	}
}

func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) Insert(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[u.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := r.mails[u.Email]; ok {
		return ErrEmailTaken
	}
	if _, ok := r.byID[u.ID]; ok {
		return ErrUsernameTaken
	}
	r.byID[u.ID] = *u
	r.names[u.Username] = u.ID
	r.mails[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	if owner, ok := r.mails[u.Email]; ok && owner != u.ID {
		return ErrEmailTaken
	}
	u.UpdatedAt = model.Today(time.Now())
	u.Username = old.Username
	delete(r.mails, old.Email)
	r.mails[u.Email] = u.ID
	r.byID[u.ID] = *u
	return nil
}

// MemoryNoteRepo is an in-process NoteStore.
type MemoryNoteRepo struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]model.Note
}

func NewMemoryNoteRepo() *MemoryNoteRepo {
	return &MemoryNoteRepo{notes: make(map[uuid.UUID]model.Note)}
}

func (r *MemoryNoteRepo) Insert(_ context.Context, n *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.NoteID] = *n
	return nil
}

func (r *MemoryNoteRepo) FindByID(_ context.Context, ownerID, noteID uuid.UUID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notes[noteID]
	if !ok || n.UserID != ownerID {
		return nil, ErrNoteNotFound
	}
	return &n, nil
}

func (r *MemoryNoteRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Note{}
	for _, n := range r.notes {
		if n.UserID == ownerID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].CreatedOn.Before(out[j].CreatedOn)
		}
		return out[i].NoteID.String() < out[j].NoteID.String()
	})
	return out, nil
}

func (r *MemoryNoteRepo) Update(_ context.Context, n *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.notes[n.NoteID]
	if !ok || old.UserID != n.UserID {
		return ErrNoteNotFound
	}
	n.LastUpdate = model.Today(time.Now())
	n.CreatedOn = old.CreatedOn
	r.notes[n.NoteID] = *n
	return nil
}

func (r *MemoryNoteRepo) Delete(_ context.Context, ownerID, noteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[noteID]
	if !ok || n.UserID != ownerID {
		return ErrNoteNotFound
	}
	delete(r.notes, noteID)
	return nil
}

var (
	_ UserDirectory = (*MemoryUserRepo)(nil)
	_ UserDirectory = (*UserRepo)(nil)
	_ NoteStore     = (*MemoryNoteRepo)(nil)
	_ NoteStore     = (*NoteRepo)(nil)
)
