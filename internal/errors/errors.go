package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a taskflow error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrUnauthorized         ErrorCode = "UNAUTHORIZED"           // 401
	ErrForbidden            ErrorCode = "FORBIDDEN"              // 403
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND" // 404
	ErrEmailTaken           ErrorCode = "EMAIL_TAKEN"            // 409
	ErrGatewayUnavailable   ErrorCode = "GATEWAY_UNAVAILABLE"    // 502
	ErrInternal             ErrorCode = "INTERNAL"               // 500
)

// TaskNotFoundMessage is used for both missing and foreign tasks.
const TaskNotFoundMessage = "Task not found or unauthorized"

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for missing or invalid credentials.
func NewUnauthorized(msg string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewForbidden creates a 403 error when the caller acts on another user's resources.
func NewForbidden() *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Status:  403,
		Message: "You don't have permission to access this resource",
	}
}

// NewTaskNotFound creates a 404 error for a task that does not exist or is owned by someone else.
func NewTaskNotFound(taskID int64) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: TaskNotFoundMessage,
		Details: map[string]any{"task_id": taskID},
	}
}

// NewUserNotFound creates a 404 error for an unknown user.
func NewUserNotFound() *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "User not found",
	}
}

// NewConversationNotFound creates a 404 error for an unknown or foreign conversation.
func NewConversationNotFound(conversationID int64) *AppError {
	return &AppError{
		Code:    ErrConversationNotFound,
		Status:  404,
		Message: "Conversation not found",
		Details: map[string]any{"conversation_id": conversationID},
	}
}

// NewEmailTaken creates a 409 error when registering an existing email.
func NewEmailTaken(email string) *AppError {
	return &AppError{
		Code:    ErrEmailTaken,
		Status:  409,
		Message: "Email already registered",
		Details: map[string]any{"email": email},
	}
}

// NewGatewayUnavailable wraps any failure from the model gateway.
func NewGatewayUnavailable(err error) *AppError {
	msg := "model gateway unavailable"
	if err != nil {
		msg = fmt.Sprintf("model gateway unavailable: %v", err)
	}
	return &AppError{
		Code:    ErrGatewayUnavailable,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As converts any error into an AppError, wrapping unknown errors as internal.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
