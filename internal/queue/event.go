// Package queue defines the domain events exchanged over the message broker
// and the background consumer that records them in the audit log.
package queue

import "time"

// Event types published by the service layer.
const (
	UserRegistered = "user.registered"
	NoteCreated    = "note.created"
	NoteUpdated    = "note.updated"
	NoteDeleted    = "note.deleted"
)

// Event is the payload of every message on the events queue. It carries
// identifiers only, so consumers never see credentials or note bodies.
type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	NoteID     string    `json:"note_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
