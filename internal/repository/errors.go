// Package repository defines the storage-facing interfaces of the service
// together with their MySQL, MongoDB and in-memory implementations. The
// sentinel errors below are shared by every implementation so callers can
// match them with errors.Is regardless of the backing store.
package repository

import "errors"

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrNoteNotFound is returned when no note matches the id for the given
// owner. A note owned by someone else is reported the same way.
var ErrNoteNotFound = errors.New("note not found")

// ErrUsernameTaken is returned by Insert when the unique username
// constraint is violated.
var ErrUsernameTaken = errors.New("username already taken")

// ErrEmailTaken is returned when the unique email constraint is violated.
var ErrEmailTaken = errors.New("email already registered")
