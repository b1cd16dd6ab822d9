package tools

import (
	"context"
	"fmt"

	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/ops"
	"github.com/hpungsan/taskflow/internal/task"
)

// Argument types for each tool

// AddTaskArgs represents the arguments for add_task.
type AddTaskArgs struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// ListTasksArgs represents the arguments for list_tasks.
type ListTasksArgs struct {
	Status string `json:"status,omitempty"`
}

// TaskIDArgs represents the arguments for complete_task and delete_task.
type TaskIDArgs struct {
	TaskID int64 `json:"task_id"`
}

// UpdateTaskArgs represents the arguments for update_task.
type UpdateTaskArgs struct {
	TaskID      int64   `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// Output types

// ErrorOutput is returned when the task operation fails.
type ErrorOutput struct {
	Error string `json:"error"`
}

// AddTaskOutput is the result of add_task.
type AddTaskOutput struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// TaskSummary describes one task in list_tasks output.
type TaskSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

// ListTasksOutput is the result of list_tasks.
type ListTasksOutput struct {
	Tasks []TaskSummary `json:"tasks"`
}

// CompleteTaskOutput is the result of complete_task.
type CompleteTaskOutput struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// DeleteTaskOutput is the result of delete_task.
type DeleteTaskOutput struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UpdateTaskOutput is the result of update_task.
type UpdateTaskOutput struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

func addTask(ctx context.Context, e *Executor, userID string, args AddTaskArgs) (*AddTaskOutput, error) {
	t, err := ops.Create(ctx, e.db, e.cfg, ops.CreateInput{
		UserID:      userID,
		Title:       args.Title,
		Description: args.Description,
	})
	if err != nil {
		return nil, err
	}
	return &AddTaskOutput{ID: t.ID, Title: t.Title, Status: "created"}, nil
}

func listTasks(ctx context.Context, e *Executor, userID string, args ListTasksArgs) (*ListTasksOutput, error) {
	tasks, err := ops.List(ctx, e.db, ops.ListInput{UserID: userID, Status: args.Status})
	if err != nil {
		return nil, err
	}
	out := &ListTasksOutput{Tasks: make([]TaskSummary, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, summarize(t))
	}
	return out, nil
}

func completeTask(ctx context.Context, e *Executor, userID string, args TaskIDArgs) (*CompleteTaskOutput, error) {
	t, err := ops.Complete(ctx, e.db, ops.CompleteInput{UserID: userID, TaskID: args.TaskID})
	if err != nil {
		return nil, err
	}
	return &CompleteTaskOutput{ID: t.ID, Title: t.Title, Status: string(t.Status)}, nil
}

func deleteTask(ctx context.Context, e *Executor, userID string, args TaskIDArgs) (*DeleteTaskOutput, error) {
	out, err := ops.Delete(ctx, e.db, ops.DeleteInput{UserID: userID, TaskID: args.TaskID})
	if err != nil {
		return nil, err
	}
	if !out.Deleted {
		return nil, errors.NewTaskNotFound(args.TaskID)
	}
	return &DeleteTaskOutput{
		Status:  "success",
		Message: fmt.Sprintf("Task %d deleted.", out.TaskID),
	}, nil
}

func updateTask(ctx context.Context, e *Executor, userID string, args UpdateTaskArgs) (*UpdateTaskOutput, error) {
	t, err := ops.Update(ctx, e.db, e.cfg, ops.UpdateInput{
		UserID:      userID,
		TaskID:      args.TaskID,
		Title:       args.Title,
		Description: args.Description,
		Status:      args.Status,
	})
	if err != nil {
		return nil, err
	}
	return &UpdateTaskOutput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
	}, nil
}

func summarize(t task.Task) TaskSummary {
	return TaskSummary{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
	}
}
