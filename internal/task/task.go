package task

import "fmt"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusCompleted}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(Normalize(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("status must be one of: pending, completed")
}

// Task is a single todo item owned by exactly one user.
type Task struct {
	// ID is assigned by storage at creation and never reused
	ID int64

	// UserID is the opaque identifier of the owning user
	UserID string

	// Title is the non-empty task title
	Title string

	// Description is optional free text
	Description *string

	Status Status

	// CreatedAt is the Unix timestamp when the task was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last mutation
	UpdatedAt int64
}
