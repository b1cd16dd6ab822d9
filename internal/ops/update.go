package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	UserID string
	TaskID int64

	// Editable fields (nil = don't change)
	Title       *string
	Description *string
	Status      *string
}

// Update applies a partial update to a task.
// Read-modify-write with no version check: concurrent updates are last-writer-wins.
func Update(ctx context.Context, database *sql.DB, cfg *config.Config, input UpdateInput) (*task.Task, error) {
	if err := requireUser(input.UserID); err != nil {
		return nil, err
	}
	if err := requireTaskID(input.TaskID); err != nil {
		return nil, err
	}

	limits := limitsFrom(cfg)

	// Validate everything before touching storage
	var (
		title  string
		status task.Status
		err    error
	)
	if input.Title != nil {
		title, err = task.ValidateTitle(*input.Title, limits)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
	}
	description, err := cleanDescription(input.Description, limits)
	if err != nil {
		return nil, err
	}
	if input.Status != nil {
		status, err = parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
	}

	t, err := db.GetTask(ctx, database, input.UserID, input.TaskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		t.Title = title
	}
	if input.Description != nil {
		t.Description = description
	}
	if input.Status != nil {
		t.Status = status
	}

	if err := db.UpdateTask(ctx, database, t); err != nil {
		return nil, err
	}

	return t, nil
}
