package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

// InsertTask stores a new task and sets its ID.
func InsertTask(ctx context.Context, db *sql.DB, t *task.Task) error {
	query := `
		INSERT INTO tasks (user_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		t.UserID, t.Title, toNullString(t.Description), string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	t.ID = id

	return nil
}

// GetTask retrieves a task by ID, scoped to its owner.
// Missing and foreign tasks both yield a NOT_FOUND error.
func GetTask(ctx context.Context, db *sql.DB, userID string, id int64) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`

	t, err := scanTask(db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, errors.NewTaskNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return t, nil
}

// ListTasks returns a user's tasks ordered by ID, optionally filtered by status.
func ListTasks(ctx context.Context, db *sql.DB, userID string, status *task.Status) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	tasks := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return tasks, nil
}

// CompleteTask marks a task completed in a single statement.
// Completing an already-completed task succeeds and refreshes updated_at.
func CompleteTask(ctx context.Context, db *sql.DB, userID string, id int64) error {
	query := `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := db.ExecContext(ctx, query, string(task.StatusCompleted), time.Now().Unix(), id, userID)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewTaskNotFound(id)
	}

	return nil
}

// UpdateTask writes the mutable fields of an existing task.
// Sets updated_at to current timestamp. Last writer wins.
// Does NOT change: id, user_id, created_at
func UpdateTask(ctx context.Context, db *sql.DB, t *task.Task) error {
	now := time.Now().Unix()

	query := `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := db.ExecContext(ctx, query,
		t.Title, toNullString(t.Description), string(t.Status), now,
		t.ID, t.UserID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewTaskNotFound(t.ID)
	}

	t.UpdatedAt = now

	return nil
}

// DeleteTask removes a task owned by userID.
// Returns false (and no error) when no such task exists for that user.
func DeleteTask(ctx context.Context, db *sql.DB, userID string, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}

	return rowsAffected > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single row into a Task struct.
func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t           task.Task
		description sql.NullString
		status      string
	)

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Description = fromNullString(description)
	t.Status = task.Status(status)

	return &t, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
