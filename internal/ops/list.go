package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/task"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	UserID string
	Status string // optional: "pending" or "completed"; empty lists all
}

// List returns the user's tasks ordered by ID.
func List(ctx context.Context, database *sql.DB, input ListInput) ([]task.Task, error) {
	if err := requireUser(input.UserID); err != nil {
		return nil, err
	}

	var filter *task.Status
	if strings.TrimSpace(input.Status) != "" {
		s, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter = &s
	}

	return db.ListTasks(ctx, database, input.UserID, filter)
}
