package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	AddTask      = "add_task"
	ListTasks    = "list_tasks"
	CompleteTask = "complete_task"
	DeleteTask   = "delete_task"
	UpdateTask   = "update_task"
)

// integer marks a numeric property as a JSON Schema integer.
func integer() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["type"] = "integer"
	}
}

var addTaskToolDef = mcp.NewTool(AddTask,
	mcp.WithDescription("Add a new task to the user's todo list."),
	mcp.WithString("title", mcp.Required(), mcp.Description("The title of the task")),
	mcp.WithString("description", mcp.Description("A detailed description of the task")),
)

var listTasksToolDef = mcp.NewTool(ListTasks,
	mcp.WithDescription("List all tasks for the current user, optionally filtered by status."),
	mcp.WithString("status",
		mcp.Description("Filter tasks by status. Can be 'pending' or 'completed'. If not provided, all tasks are returned."),
		mcp.Enum("pending", "completed"),
	),
)

var completeTaskToolDef = mcp.NewTool(CompleteTask,
	mcp.WithDescription("Mark a specific task as completed."),
	mcp.WithNumber("task_id", integer(), mcp.Required(), mcp.Description("The ID of the task to mark as complete.")),
)

var deleteTaskToolDef = mcp.NewTool(DeleteTask,
	mcp.WithDescription("Delete a task from the user's todo list."),
	mcp.WithNumber("task_id", integer(), mcp.Required(), mcp.Description("The ID of the task to delete.")),
)

var updateTaskToolDef = mcp.NewTool(UpdateTask,
	mcp.WithDescription("Update the title, description, or status of an existing task."),
	mcp.WithNumber("task_id", integer(), mcp.Required(), mcp.Description("The ID of the task to update.")),
	mcp.WithString("title", mcp.Description("The new title for the task (optional).")),
	mcp.WithString("description", mcp.Description("The new description for the task (optional).")),
	mcp.WithString("status",
		mcp.Description("The new status for the task (e.g., 'pending' or 'completed') (optional)."),
		mcp.Enum("pending", "completed"),
	),
)

// Catalog returns the tool descriptors offered to the model, in a fixed order.
func Catalog() []mcp.Tool {
	return []mcp.Tool{
		addTaskToolDef,
		listTasksToolDef,
		completeTaskToolDef,
		deleteTaskToolDef,
		updateTaskToolDef,
	}
}

// Names returns the catalog's tool names in order.
func Names() []string {
	catalog := Catalog()
	names := make([]string, 0, len(catalog))
	for _, t := range catalog {
		names = append(names, t.Name)
	}
	return names
}

// Filter returns catalog without the named tools.
func Filter(catalog []mcp.Tool, disabled []string) []mcp.Tool {
	if len(disabled) == 0 {
		return catalog
	}
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}
	out := make([]mcp.Tool, 0, len(catalog))
	for _, t := range catalog {
		if !skip[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// Unknown returns the names in the list that are not in the catalog.
func Unknown(names []string) []string {
	known := make(map[string]bool)
	for _, n := range Names() {
		known[n] = true
	}
	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
