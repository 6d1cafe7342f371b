package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is a text note owned by a single user. NoteID is the only identifier
// used to address a note.
type Note struct {
	NoteID     uuid.UUID
	UserID     uuid.UUID
	Title      string
	Content    string
	CreatedOn  time.Time
	LastUpdate time.Time
}

// NoteResponse is the JSON representation of a Note.
type NoteResponse struct {
	NoteID     string `json:"note_id"`
	UserID     string `json:"user_id"`
	Title      string `json:"note_title"`
	Content    string `json:"note_content"`
	CreatedOn  string `json:"created_on"`
	LastUpdate string `json:"last_update"`
}

func (n *Note) Public() NoteResponse {
	return NoteResponse{
		NoteID:     n.NoteID.String(),
		UserID:     n.UserID.String(),
		Title:      n.Title,
		Content:    n.Content,
		CreatedOn:  n.CreatedOn.Format(DateLayout),
		LastUpdate: n.LastUpdate.Format(DateLayout),
	}
}

func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Public())
}
