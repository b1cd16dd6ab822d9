package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/taskflow/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	UserID string
	TaskID int64
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	TaskID  int64 `json:"task_id"`
	Deleted bool  `json:"deleted"`
}

// Delete removes a task. A missing or foreign task is reported as
// Deleted=false rather than an error.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	if err := requireUser(input.UserID); err != nil {
		return nil, err
	}
	if input.TaskID <= 0 {
		return &DeleteOutput{TaskID: input.TaskID}, nil
	}

	deleted, err := db.DeleteTask(ctx, database, input.UserID, input.TaskID)
	if err != nil {
		return nil, err
	}

	return &DeleteOutput{
		TaskID:  input.TaskID,
		Deleted: deleted,
	}, nil
}
