package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/auth"
	"github.com/hpungsan/taskflow/internal/chat"
	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/ops"
	"github.com/hpungsan/taskflow/internal/task"
)

// Handlers contains HTTP route handlers for the task API.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	auth    *auth.Service
	chat    ChatHandler
	log     zerolog.Logger
	version string
}

// TaskResponse is the JSON form of a task.
type TaskResponse struct {
	ID          int64   `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// UserResponse is the JSON form of the current user.
type UserResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// CreateTaskRequest is the body of POST /api/{user_id}/tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// UpdateTaskRequest is the body of PATCH /api/{user_id}/tasks/{task_id}.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ChatRequest is the body of POST /api/{user_id}/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// ChatResponse is the reply to a chat message.
type ChatResponse struct {
	Response       string `json:"response"`
	ResponseHTML   string `json:"response_html"`
	ConversationID int64  `json:"conversation_id"`
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		renderJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// HandleRegister handles POST /auth/register.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		renderError(w, h.log, err)
		return
	}

	tok, err := h.auth.Register(r.Context(), in)
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, tok)
}

// HandleLogin handles POST /auth/login.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		renderError(w, h.log, err)
		return
	}

	tok, err := h.auth.Login(r.Context(), in)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		renderError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, tok)
}

// HandleMe handles GET /auth/me.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, UserResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

// HandleListTasks handles GET /api/{user_id}/tasks.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := ops.List(r.Context(), h.db, ops.ListInput{
		UserID: r.PathValue("user_id"),
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(&t))
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCreateTask handles POST /api/{user_id}/tasks.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body CreateTaskRequest
	if err := decodeJSON(w, r, &body); err != nil {
		renderError(w, h.log, err)
		return
	}

	t, err := ops.Create(r.Context(), h.db, h.cfg, ops.CreateInput{
		UserID:      r.PathValue("user_id"),
		Title:       body.Title,
		Description: body.Description,
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusCreated, toTaskResponse(t))
}

// HandleUpdateTask handles PATCH /api/{user_id}/tasks/{task_id}.
func (h *Handlers) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	var body UpdateTaskRequest
	if err := decodeJSON(w, r, &body); err != nil {
		renderError(w, h.log, err)
		return
	}

	t, err := ops.Update(r.Context(), h.db, h.cfg, ops.UpdateInput{
		UserID:      r.PathValue("user_id"),
		TaskID:      taskID,
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	renderJSON(w, http.StatusOK, toTaskResponse(t))
}

// HandleDeleteTask handles DELETE /api/{user_id}/tasks/{task_id}.
func (h *Handlers) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	out, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{
		UserID: r.PathValue("user_id"),
		TaskID: taskID,
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}
	if !out.Deleted {
		renderError(w, h.log, errors.NewTaskNotFound(taskID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChat handles POST /api/{user_id}/chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := decodeJSON(w, r, &body); err != nil {
		renderError(w, h.log, err)
		return
	}

	resp, err := h.chat.Handle(r.Context(), chat.Request{
		UserID:         r.PathValue("user_id"),
		Message:        body.Message,
		ConversationID: body.ConversationID,
	})
	if err != nil {
		renderError(w, h.log, err)
		return
	}

	renderJSON(w, http.StatusOK, ChatResponse{
		Response:       resp.Response,
		ResponseHTML:   string(renderMarkdown(resp.Response)),
		ConversationID: resp.ConversationID,
	})
}

func parseTaskID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("task_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.NewInvalidRequest("task_id must be an integer")
	}
	return id, nil
}

func toTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
