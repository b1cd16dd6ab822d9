package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/taskflow/internal/errors"
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	Name         *string
	PasswordHash string
	CreatedAt    int64
}

// InsertUser stores a new user. A duplicate email yields EMAIL_TAKEN.
func InsertUser(ctx context.Context, db *sql.DB, u *User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query, u.ID, u.Email, toNullString(u.Name), u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewEmailTaken(u.Email)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetUserByEmail looks a user up by email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	return getUser(ctx, db, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

// GetUserByID looks a user up by ID.
func GetUserByID(ctx context.Context, db *sql.DB, id string) (*User, error) {
	return getUser(ctx, db, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

func getUser(ctx context.Context, db *sql.DB, query string, arg string) (*User, error) {
	var (
		u    User
		name sql.NullString
	)
	err := db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &name, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewUserNotFound()
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	u.Name = fromNullString(name)
	return &u, nil
}

// isUniqueConstraintError checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
