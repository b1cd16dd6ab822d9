package ops

import (
	"strings"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

// limitsFrom returns the task text limits configured in cfg.
func limitsFrom(cfg *config.Config) task.Limits {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return task.Limits{
		TitleMaxChars:       cfg.TitleMaxChars,
		DescriptionMaxChars: cfg.DescriptionMaxChars,
	}
}

// requireUser rejects an empty owner identifier.
func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.NewInvalidRequest("user_id is required")
	}
	return nil
}

// requireTaskID rejects non-positive task identifiers.
// No task can own such an id, so it reads the same as a missing task.
func requireTaskID(taskID int64) error {
	if taskID <= 0 {
		return errors.NewTaskNotFound(taskID)
	}
	return nil
}

// parseStatus validates a raw status string into an INVALID_REQUEST on failure.
func parseStatus(raw string) (task.Status, error) {
	s, err := task.ParseStatus(raw)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return s, nil
}

// cleanDescription validates an optional description.
// A blank description is stored as nil.
func cleanDescription(desc *string, limits task.Limits) (*string, error) {
	if desc == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil, nil
	}
	if err := task.ValidateDescription(trimmed, limits); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return &trimmed, nil
}
