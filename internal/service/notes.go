package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/model"
	"github.com/iliyamo/notes-backend/internal/queue"
	"github.com/iliyamo/notes-backend/internal/repository"
)

// NoteUpdate is a partial update; nil fields are left unchanged.
type NoteUpdate struct {
	Title   *string
	Content *string
}

// NoteService manages the notes of an authenticated user. Every method
// takes the owner's id, and notes of other users are reported as
// ErrNoteNotFound.
type NoteService struct {
	notes  repository.NoteStore
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewNoteService(notes repository.NoteStore, events EventPublisher, log *zap.Logger) *NoteService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteService{notes: notes, events: events, log: log, now: time.Now}
}

func (s *NoteService) Create(ctx context.Context, owner uuid.UUID, title, content string) (*model.Note, error) {
	today := model.Today(s.now())
	n := &model.Note{
		NoteID:     uuid.New(),
		UserID:     owner,
		Title:      title,
		Content:    content,
		CreatedOn:  today,
		LastUpdate: today,
	}
	if err := s.notes.Insert(ctx, n); err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NoteCreated, n)
	return n, nil
}

func (s *NoteService) List(ctx context.Context, owner uuid.UUID) ([]*model.Note, error) {
	return s.notes.ListByOwner(ctx, owner)
}

func (s *NoteService) Get(ctx context.Context, owner, id uuid.UUID) (*model.Note, error) {
	n, err := s.notes.FindByID(ctx, owner, id)
	return n, notFound(err)
}

func (s *NoteService) Update(ctx context.Context, owner, id uuid.UUID, in NoteUpdate) (*model.Note, error) {
	n, err := s.notes.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err)
	}
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return nil, notFound(err)
	}
	s.publish(ctx, queue.NoteUpdated, n)
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.notes.Delete(ctx, owner, id); err != nil {
		return notFound(err)
	}
	s.publish(ctx, queue.NoteDeleted, &model.Note{NoteID: id, UserID: owner})
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNoteNotFound) {
		return ErrNoteNotFound
	}
	return err
}

func (s *NoteService) publish(ctx context.Context, typ string, n *model.Note) {
	ev := queue.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     n.UserID.String(),
		NoteID:     n.NoteID.String(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx, s.log).Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}
