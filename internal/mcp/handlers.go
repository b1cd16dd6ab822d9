package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/tools"
)

// Handlers binds MCP tool calls to a single user.
type Handlers struct {
	exec   ToolExecutor
	userID string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(exec ToolExecutor, userID string) *Handlers {
	return &Handlers{exec: exec, userID: userID}
}

// Handle returns the handler for the named tool.
//
// A failed task operation is still a tool result: its {"error": ...} body is
// returned with IsError set. Bad arguments become INVALID_REQUEST.
func (h *Handlers) Handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call, err := h.exec.Call(ctx, h.userID, name, req.GetArguments())
		if err != nil {
			return errorResult(err), nil
		}

		result, err := successResult(call.Output)
		if err != nil {
			return errorResult(errors.NewInternal(err)), nil
		}
		result.IsError = call.Failed()
		return result, nil
	}
}

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var argErr *tools.ArgumentError
	switch {
	case stderrors.As(err, &argErr):
		err = errors.NewInvalidRequest(argErr.Error())
	case stderrors.Is(err, tools.ErrUnknownTool):
		err = errors.NewInvalidRequest(err.Error())
	}

	appErr := errors.As(err)
	errorObj := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
		"status":  appErr.Status,
	}
	if appErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if appErr.Details != nil {
		errorObj["details"] = appErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
