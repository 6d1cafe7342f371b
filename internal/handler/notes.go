package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-backend/internal/middleware"
	"github.com/iliyamo/notes-backend/internal/model"
	"github.com/iliyamo/notes-backend/internal/service"
)

// NotesHandler serves the /notes routes. Every route runs behind JWTAuth
// and RequireActive, so the current user is always present.
type NotesHandler struct {
	Notes   *service.NoteService
	Timeout time.Duration
	Log     *zap.Logger
}

func NewNotesHandler(notes *service.NoteService, timeout time.Duration, log *zap.Logger) *NotesHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotesHandler{Notes: notes, Timeout: timeout, Log: log}
}

// Content must be present but may be empty.
type createNoteReq struct {
	Title   string  `json:"note_title" validate:"required,max=255"`
	Content *string `json:"note_content" validate:"required"`
}

type updateNoteReq struct {
	Title   *string `json:"note_title" validate:"omitempty,max=255"`
	Content *string `json:"note_content"`
}

// scope returns the owner id and a request context bounded by h.Timeout.
func (h *NotesHandler) scope(c echo.Context) (uuid.UUID, context.Context, context.CancelFunc, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return uuid.Nil, nil, nil, false
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	return u.ID, ctx, cancel, true
}

// noteID parses the :id path parameter. A malformed id cannot name any
// note, so the caller answers it like a missing note.
func noteID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"detail": msgNoteNotFound})
}

func (h *NotesHandler) Create(c echo.Context) error {
	var req createNoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	owner, ctx, cancel, ok := h.scope(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	defer cancel()

	n, err := h.Notes.Create(ctx, owner, req.Title, *req.Content)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, n.Public())
}

func (h *NotesHandler) List(c echo.Context) error {
	owner, ctx, cancel, ok := h.scope(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	defer cancel()

	notes, err := h.Notes.List(ctx, owner)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]model.NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Public())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotesHandler) Get(c echo.Context) error {
	id, ok := noteID(c)
	if !ok {
		return notFound(c)
	}
	owner, ctx, cancel, ok := h.scope(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	defer cancel()

	n, err := h.Notes.Get(ctx, owner, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, n.Public())
}

func (h *NotesHandler) Update(c echo.Context) error {
	id, ok := noteID(c)
	if !ok {
		return notFound(c)
	}
	var req updateNoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	owner, ctx, cancel, ok := h.scope(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	defer cancel()

	n, err := h.Notes.Update(ctx, owner, id, service.NoteUpdate{Title: req.Title, Content: req.Content})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, n.Public())
}

func (h *NotesHandler) Delete(c echo.Context) error {
	id, ok := noteID(c)
	if !ok {
		return notFound(c)
	}
	owner, ctx, cancel, ok := h.scope(c)
	if !ok {
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	}
	defer cancel()

	if err := h.Notes.Delete(ctx, owner, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": msgNoteDeleted})
}
