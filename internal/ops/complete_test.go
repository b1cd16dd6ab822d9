package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

func TestComplete(t *testing.T) {
	database := newTestDB(t)

	tk := mustCreate(t, database, "u1", "write report")

	got, err := Complete(context.Background(), database, CompleteInput{UserID: "u1", TaskID: tk.ID})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Status != task.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.Title != "write report" {
		t.Errorf("Title = %q, want write report", got.Title)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	tk := mustCreate(t, database, "u1", "x")

	for i := 0; i < 3; i++ {
		got, err := Complete(ctx, database, CompleteInput{UserID: "u1", TaskID: tk.ID})
		if err != nil {
			t.Fatalf("Complete #%d failed: %v", i+1, err)
		}
		if got.Status != task.StatusCompleted {
			t.Errorf("Complete #%d Status = %q", i+1, got.Status)
		}
	}
}

func TestComplete_NotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := Complete(context.Background(), database, CompleteInput{UserID: "u1", TaskID: 3})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.As(err).Message != errors.TaskNotFoundMessage {
		t.Errorf("Message = %q, want %q", errors.As(err).Message, errors.TaskNotFoundMessage)
	}
}

func TestComplete_InvalidID(t *testing.T) {
	database := newTestDB(t)

	_, err := Complete(context.Background(), database, CompleteInput{UserID: "u1", TaskID: 0})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
