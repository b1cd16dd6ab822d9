package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	UserID      string
	Title       string  // required, trimmed
	Description *string // optional
}

// Create adds a pending task for the user.
func Create(ctx context.Context, database *sql.DB, cfg *config.Config, input CreateInput) (*task.Task, error) {
	if err := requireUser(input.UserID); err != nil {
		return nil, err
	}

	limits := limitsFrom(cfg)
	title, err := task.ValidateTitle(input.Title, limits)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	description, err := cleanDescription(input.Description, limits)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	t := &task.Task{
		UserID:      input.UserID,
		Title:       title,
		Description: description,
		Status:      task.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.InsertTask(ctx, database, t); err != nil {
		return nil, err
	}

	return t, nil
}
