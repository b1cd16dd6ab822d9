package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
)

// ErrUnknownTool is returned when a call names a tool outside the catalog.
var ErrUnknownTool = stderrors.New("unknown tool")

// ArgumentError reports arguments that do not fit a tool's parameter schema.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Call records one executed tool invocation.
type Call struct {
	Name string

	// Args are the arguments as received.
	Args map[string]any

	// Output is the typed handler result (or *ErrorOutput).
	Output any

	// Result is Output as a JSON object, ready to persist or return to the model.
	Result map[string]any
}

// Failed reports whether the tool returned an error result.
func (c *Call) Failed() bool {
	_, ok := c.Output.(*ErrorOutput)
	return ok
}

// handler executes a tool for a user with undecoded arguments.
type handler func(ctx context.Context, e *Executor, userID string, args map[string]any) (any, error)

// handlers maps tool names to their typed implementations.
var handlers = map[string]handler{
	AddTask:      bind(AddTask, addTask),
	ListTasks:    bind(ListTasks, listTasks),
	CompleteTask: bind(CompleteTask, completeTask),
	DeleteTask:   bind(DeleteTask, deleteTask),
	UpdateTask:   bind(UpdateTask, updateTask),
}

// Executor dispatches tool calls to task operations.
type Executor struct {
	db       *sql.DB
	cfg      *config.Config
	catalog  map[string]mcp.Tool
	handlers map[string]handler
}

// NewExecutor creates an Executor. It fails if the catalog and the
// handler table disagree on the set of tools.
func NewExecutor(db *sql.DB, cfg *config.Config) (*Executor, error) {
	return newExecutor(db, cfg, Catalog(), handlers)
}

func newExecutor(db *sql.DB, cfg *config.Config, catalog []mcp.Tool, table map[string]handler) (*Executor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	byName := make(map[string]mcp.Tool, len(catalog))
	var missing []string
	for _, t := range catalog {
		byName[t.Name] = t
		if _, ok := table[t.Name]; !ok {
			missing = append(missing, t.Name)
		}
	}
	var extra []string
	for name := range table {
		if _, ok := byName[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("tool table mismatch: no handler for %v, no descriptor for %v", missing, extra)
	}

	return &Executor{db: db, cfg: cfg, catalog: byName, handlers: table}, nil
}

// Call executes the named tool for userID.
// Unknown tools and malformed arguments are returned as errors. Failures of
// the underlying task operation are returned as a Call whose Output is an
// *ErrorOutput.
func (e *Executor) Call(ctx context.Context, userID, name string, args map[string]any) (*Call, error) {
	h, ok := e.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := checkRequired(e.catalog[name], args); err != nil {
		return nil, err
	}

	out, err := h(ctx, e, userID, args)
	if err != nil {
		var argErr *ArgumentError
		if stderrors.As(err, &argErr) {
			return nil, err
		}
		out = errorOutput(err)
	}

	result, err := toMap(out)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &Call{Name: name, Args: args, Output: out, Result: result}, nil
}

// checkRequired verifies every required parameter is present and non-null.
func checkRequired(def mcp.Tool, args map[string]any) error {
	for _, key := range def.InputSchema.Required {
		if v, ok := args[key]; !ok || v == nil {
			return &ArgumentError{Tool: def.Name, Err: fmt.Errorf("missing required parameter %q", key)}
		}
	}
	return nil
}

// bind adapts a typed tool function to the handler signature.
func bind[A any, R any](name string, fn func(context.Context, *Executor, string, A) (R, error)) handler {
	return func(ctx context.Context, e *Executor, userID string, raw map[string]any) (any, error) {
		args, err := decode[A](raw)
		if err != nil {
			return nil, &ArgumentError{Tool: name, Err: err}
		}
		return fn(ctx, e, userID, args)
	}
}

// decode converts loosely typed tool arguments into a typed struct.
func decode[T any](args map[string]any) (T, error) {
	var result T
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// toMap converts a tool output to its JSON object form.
func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// errorOutput converts an operation error into tool result data.
// Internal error details are never exposed.
func errorOutput(err error) *ErrorOutput {
	appErr := errors.As(err)
	if appErr.Code == errors.ErrInternal {
		return &ErrorOutput{Error: "internal error"}
	}
	return &ErrorOutput{Error: appErr.Message}
}
