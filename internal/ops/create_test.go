package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/task"
)

func TestCreate_ThenList(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	created, err := Create(ctx, database, config.DefaultConfig(), CreateInput{
		UserID:      "u1",
		Title:       "  buy milk  ",
		Description: stringPtr("semi-skimmed"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID <= 0 {
		t.Errorf("ID = %d, want positive", created.ID)
	}
	if created.Title != "buy milk" {
		t.Errorf("Title = %q, want trimmed", created.Title)
	}
	if created.Status != task.StatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}
	if created.CreatedAt == 0 || created.CreatedAt != created.UpdatedAt {
		t.Errorf("timestamps = %d/%d", created.CreatedAt, created.UpdatedAt)
	}

	tasks, err := List(ctx, database, ListInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "buy milk" || tasks[0].Status != task.StatusPending {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestCreate_EmptyTitle(t *testing.T) {
	database := newTestDB(t)

	_, err := Create(context.Background(), database, config.DefaultConfig(), CreateInput{UserID: "u1", Title: "   "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreate_TitleTooLong(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	cfg.TitleMaxChars = 10

	_, err := Create(context.Background(), database, cfg, CreateInput{UserID: "u1", Title: strings.Repeat("x", 11)})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreate_DescriptionTooLong(t *testing.T) {
	database := newTestDB(t)
	cfg := config.DefaultConfig()
	cfg.DescriptionMaxChars = 3

	_, err := Create(context.Background(), database, cfg, CreateInput{
		UserID:      "u1",
		Title:       "ok",
		Description: stringPtr("toolong"),
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreate_MissingUser(t *testing.T) {
	database := newTestDB(t)

	_, err := Create(context.Background(), database, config.DefaultConfig(), CreateInput{Title: "x"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
