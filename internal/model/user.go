package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of every date-granular timestamp.
const DateLayout = "2006-01-02"

// User represents an account record. ID is generated at registration and
// never changes. Username and Email are unique across all users; the store
// enforces that with unique indexes. PasswordHash holds a bcrypt digest and
// is never serialized.
//
// Fields:
//
//	ID           – process-wide unique identifier (the token subject).
//	Username     – unique login name.
//	Email        – unique email address.
//	FullName     – optional display name (nil when absent).
//	Active       – false once the account is disabled.
//	PasswordHash – bcrypt digest of the password.
//	CreatedAt    – creation date (UTC midnight).
//	UpdatedAt    – last modification date (UTC midnight).
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FullName     *string
	Active       bool
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserResponse is the only JSON representation of a User.
type UserResponse struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	Disabled  bool    `json:"disabled"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Public returns the user representation with the password hash excluded.
func (u *User) Public() UserResponse {
	return UserResponse{
		UserID:    u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Disabled:  !u.Active,
		CreatedAt: u.CreatedAt.Format(DateLayout),
		UpdatedAt: u.UpdatedAt.Format(DateLayout),
	}
}

// MarshalJSON makes sure a User can only ever be encoded through Public.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Public())
}

// Today truncates t to midnight UTC, the granularity used for all stored dates.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
