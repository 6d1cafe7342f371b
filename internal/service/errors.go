package service

import (
	"errors"

	"github.com/iliyamo/notes-backend/internal/utils"
)

// Failures surfaced to the HTTP layer.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrNoteNotFound       = errors.New("note not found")
)

// Internal reasons for ErrUnauthenticated. They are wrapped together with
// ErrUnauthenticated and only ever reach logs and metrics.
var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrUnknownSubject = errors.New("token subject does not exist")
)

// Reason returns a short label for an authentication failure, suitable for
// log fields and metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, utils.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, utils.ErrTokenExpired):
		return "expired"
	case errors.Is(err, utils.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	default:
		return "error"
	}
}
