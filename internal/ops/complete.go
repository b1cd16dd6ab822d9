package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/task"
)

// CompleteInput contains parameters for the Complete operation.
type CompleteInput struct {
	UserID string
	TaskID int64
}

// Complete marks a task completed. Completing an already-completed task succeeds.
func Complete(ctx context.Context, database *sql.DB, input CompleteInput) (*task.Task, error) {
	if err := requireUser(input.UserID); err != nil {
		return nil, err
	}
	if err := requireTaskID(input.TaskID); err != nil {
		return nil, err
	}

	if err := db.CompleteTask(ctx, database, input.UserID, input.TaskID); err != nil {
		return nil, err
	}

	return db.GetTask(ctx, database, input.UserID, input.TaskID)
}
