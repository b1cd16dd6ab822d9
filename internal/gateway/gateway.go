package gateway

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrUnavailable wraps every failure of a gateway call.
var ErrUnavailable = errors.New("model gateway unavailable")

// Role tags the author of a history turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the data a tool returned.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Turn is one history entry in provider-neutral shape.
// Exactly one of Text, Call, Result is meaningful for a given turn.
type Turn struct {
	Role   Role
	Text   string
	Call   *ToolCall
	Result *ToolResult
}

// UserText returns a user text turn.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelText returns a model text turn.
func ModelText(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// ModelCall returns a model turn requesting a tool.
func ModelCall(name string, args map[string]any) Turn {
	return Turn{Role: RoleModel, Call: &ToolCall{Name: name, Args: args}}
}

// ToolOutput returns a turn carrying a tool's result.
func ToolOutput(name string, response map[string]any) Turn {
	return Turn{Role: RoleTool, Result: &ToolResult{Name: name, Response: response}}
}

// Reply is the gateway's answer: final text, or a single tool request.
type Reply struct {
	Text string
	Call *ToolCall
}

// Gateway is the boundary to an external conversational model.
type Gateway interface {
	// Send submits history plus a new message along with the tool catalog.
	// Any failure is reported as an error wrapping ErrUnavailable.
	Send(ctx context.Context, history []Turn, message Turn, catalog []mcp.Tool) (*Reply, error)
}

// Disabled is used when no model is configured. Every call fails.
type Disabled struct{}

// Send always returns ErrUnavailable.
func (Disabled) Send(context.Context, []Turn, Turn, []mcp.Tool) (*Reply, error) {
	return nil, ErrUnavailable
}
