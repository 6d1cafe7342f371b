package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/notes-backend/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// UserRepo is the MySQL implementation of UserDirectory. It relies on the
// uq_users_username and uq_users_email unique keys created by the schema
// migrations to make registration race-safe.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "user_id, username, email, full_name, is_active, password_hash, created_at, updated_at"

// FindByUsername fetches a user by exact username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", username)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = ? LIMIT 1", id.String())
	return scanUser(row)
}

// Insert stores a new user. A duplicate username or email is reported as
// ErrUsernameTaken or ErrEmailTaken.
func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID.String(), u.Username, u.Email, nullString(u.FullName), u.Active, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return translateDuplicate(err)
	}
	return nil
}

// Update replaces the mutable fields of an existing user and bumps
// updated_at. The identifier and username never change.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.UpdatedAt = model.Today(time.Now())
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email = ?, full_name = ?, is_active = ?, password_hash = ?, updated_at = ? WHERE user_id = ?",
		u.Email, nullString(u.FullName), u.Active, u.PasswordHash, u.UpdatedAt, u.ID.String())
	if err != nil {
		return translateDuplicate(err)
	}
	// the DSN sets clientFoundRows, so 0 affected rows means no such user
	return requireAffected(res, ErrUserNotFound)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		id       string
		fullName sql.NullString
	)
	err := row.Scan(&id, &u.Username, &u.Email, &fullName, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	return &u, nil
}

// translateDuplicate maps a MySQL duplicate-key error onto the sentinel for
// the violated unique key.
func translateDuplicate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return err
	}
	if strings.Contains(me.Message, "uq_users_email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
