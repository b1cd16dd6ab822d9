package fallback

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/taskflow/internal/task"
	"github.com/hpungsan/taskflow/internal/tools"
)

// DefaultReply is returned when no intent is recognized and whenever a reply
// would otherwise be empty.
const DefaultReply = "Task processed successfully!"

var (
	completeIDPattern = regexp.MustCompile(`(?:complete|mark)\s+task\s+(\d+)`)
	deleteIDPattern   = regexp.MustCompile(`(?:delete|remove)\s+task\s+(\d+)`)
)

// Executor runs tool calls on behalf of a user.
type Executor interface {
	Call(ctx context.Context, userID, name string, args map[string]any) (*tools.Call, error)
}

// Result is the parser's reply. Call is set when a tool was invoked.
type Result struct {
	Text string
	Call *tools.Call
}

// Parser matches simple command phrases and runs the matching tool.
type Parser struct {
	exec Executor
}

// New creates a Parser.
func New(exec Executor) *Parser {
	return &Parser{exec: exec}
}

// targetAction describes the id-or-title commands (complete, delete).
type targetAction struct {
	tool     string
	triggers []string
	idRegex  *regexp.Regexp
	byID     string // format with the task id
	byTitle  string // format with the task title
	example  string
}

var completeAction = targetAction{
	tool:     tools.CompleteTask,
	triggers: []string{"complete task", "mark task"},
	idRegex:  completeIDPattern,
	byID:     "Task %d marked as completed.",
	byTitle:  "Task '%s' marked as completed.",
	example:  "Please specify which task to complete, for example: 'complete task 3' or 'complete task buy milk'.",
}

var deleteAction = targetAction{
	tool:     tools.DeleteTask,
	triggers: []string{"delete task", "remove task"},
	idRegex:  deleteIDPattern,
	byID:     "Task %d deleted successfully.",
	byTitle:  "Task '%s' deleted successfully.",
	example:  "Please specify which task to delete, for example: 'delete task 2' or 'delete task buy milk'.",
}

// Handle interprets message, first match wins:
// add task, list/show tasks, complete/mark task, delete/remove task.
func (p *Parser) Handle(ctx context.Context, userID, message string) (*Result, error) {
	text := strings.TrimSpace(message)
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "add task"):
		return p.add(ctx, userID, text)
	case strings.Contains(lower, "list tasks"), strings.Contains(lower, "show tasks"):
		return p.list(ctx, userID)
	case containsAny(lower, completeAction.triggers):
		return p.target(ctx, userID, text, lower, completeAction)
	case containsAny(lower, deleteAction.triggers):
		return p.target(ctx, userID, text, lower, deleteAction)
	}
	return &Result{Text: DefaultReply}, nil
}

func (p *Parser) add(ctx context.Context, userID, text string) (*Result, error) {
	title := strings.TrimSpace(after(text, "add task"))
	if strings.HasPrefix(strings.ToLower(title), "to ") {
		title = strings.TrimSpace(title[3:])
	}
	if title == "" {
		title = "New task"
	}

	call, err := p.exec.Call(ctx, userID, tools.AddTask, map[string]any{"title": title})
	if err != nil {
		return nil, err
	}
	if msg, failed := errorText(call); failed {
		return &Result{Text: msg, Call: call}, nil
	}
	if out, ok := call.Output.(*tools.AddTaskOutput); ok {
		title = out.Title
	}
	return &Result{Text: fmt.Sprintf("Task '%s' added successfully.", title), Call: call}, nil
}

func (p *Parser) list(ctx context.Context, userID string) (*Result, error) {
	call, err := p.exec.Call(ctx, userID, tools.ListTasks, map[string]any{})
	if err != nil {
		return nil, err
	}
	if msg, failed := errorText(call); failed {
		return &Result{Text: msg, Call: call}, nil
	}

	out, _ := call.Output.(*tools.ListTasksOutput)
	if out == nil || len(out.Tasks) == 0 {
		return &Result{Text: "You have no tasks yet.", Call: call}, nil
	}

	items := make([]string, 0, len(out.Tasks))
	for _, t := range out.Tasks {
		items = append(items, fmt.Sprintf("%d: %s (%s)", t.ID, t.Title, t.Status))
	}
	return &Result{Text: "Here are your tasks: " + strings.Join(items, "; ") + ".", Call: call}, nil
}

func (p *Parser) target(ctx context.Context, userID, text, lower string, action targetAction) (*Result, error) {
	if m := action.idRegex.FindStringSubmatch(lower); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			call, err := p.exec.Call(ctx, userID, action.tool, map[string]any{"task_id": id})
			if err != nil {
				return nil, err
			}
			if msg, failed := errorText(call); failed {
				return &Result{Text: msg, Call: call}, nil
			}
			return &Result{Text: fmt.Sprintf(action.byID, id), Call: call}, nil
		}
	}

	trigger := action.triggers[0]
	if !strings.Contains(lower, trigger) {
		trigger = action.triggers[1]
	}
	query := strings.TrimSpace(after(text, trigger))
	if query == "" {
		return &Result{Text: action.example}, nil
	}

	matches, errMsg, err := p.match(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	if errMsg != "" {
		return &Result{Text: errMsg}, nil
	}

	switch len(matches) {
	case 0:
		return &Result{Text: fmt.Sprintf("No task found with a title matching '%s'.", query)}, nil
	case 1:
		call, err := p.exec.Call(ctx, userID, action.tool, map[string]any{"task_id": matches[0].ID})
		if err != nil {
			return nil, err
		}
		if msg, failed := errorText(call); failed {
			return &Result{Text: msg, Call: call}, nil
		}
		return &Result{Text: fmt.Sprintf(action.byTitle, matches[0].Title), Call: call}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, t := range matches {
		ids = append(ids, strconv.FormatInt(t.ID, 10))
	}
	return &Result{
		Text: fmt.Sprintf("Multiple tasks match '%s'. Please specify the task ID instead (one of: %s).", query, strings.Join(ids, ", ")),
	}, nil
}

// match returns the user's tasks whose title matches query. The lookup is a
// read and is not recorded as a tool call.
func (p *Parser) match(ctx context.Context, userID, query string) ([]tools.TaskSummary, string, error) {
	call, err := p.exec.Call(ctx, userID, tools.ListTasks, map[string]any{})
	if err != nil {
		return nil, "", err
	}
	if msg, failed := errorText(call); failed {
		return nil, msg, nil
	}
	out, _ := call.Output.(*tools.ListTasksOutput)
	if out == nil {
		return nil, "", nil
	}

	var matches []tools.TaskSummary
	for _, t := range out.Tasks {
		if task.TitleMatches(t.Title, query) {
			matches = append(matches, t)
		}
	}
	return matches, "", nil
}

// errorText returns the error string of a failed tool call.
func errorText(call *tools.Call) (string, bool) {
	if out, ok := call.Output.(*tools.ErrorOutput); ok {
		return out.Error, true
	}
	return "", false
}

// after returns the part of text following the first case-insensitive
// occurrence of phrase.
func after(text, phrase string) string {
	n := utf8.RuneCountInString(phrase)
	for i := range text {
		end := i
		for k := 0; k < n && end < len(text); k++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		if strings.EqualFold(text[i:end], phrase) {
			return text[end:]
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
