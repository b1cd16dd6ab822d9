package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/taskflow/internal/chat"
	"github.com/hpungsan/taskflow/internal/config"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/ops"
	"github.com/hpungsan/taskflow/internal/task"
)

// taskOutput is the JSON form of a task printed by the task commands.
type taskOutput struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log zerolog.Logger) *cli.App {
	app := &cli.App{
		Name:    "taskflow",
		Usage:   "Todo tasks with a conversational assistant",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg, log),
			mcpCmd(db, cfg, log),
			taskCmd(db, cfg),
			chatCmd(db, cfg, log),
			tokenCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// userFlag is the --user flag shared by commands that act as one user.
func userFlag() cli.Flag {
	return &cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User ID the command acts as"}
}

// taskCmd groups the task subcommands.
func taskCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage tasks directly",
		Subcommands: []*cli.Command{
			taskAddCmd(db, cfg),
			taskListCmd(db),
			taskCompleteCmd(db),
			taskUpdateCmd(db, cfg),
			taskDeleteCmd(db),
		},
	}
}

func taskAddCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Task description"},
		},
		Action: func(c *cli.Context) error {
			input := ops.CreateInput{
				UserID: c.String("user"),
				Title:  strings.Join(c.Args().Slice(), " "),
			}
			if c.IsSet("description") {
				d := c.String("description")
				input.Description = &d
			}

			t, err := ops.Create(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, toTaskOutput(t))
		},
	}
}

func taskListCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tasks",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Filter by status: pending|completed"},
		},
		Action: func(c *cli.Context) error {
			tasks, err := ops.List(c.Context, db, ops.ListInput{
				UserID: c.String("user"),
				Status: c.String("status"),
			})
			if err != nil {
				return outputError(err)
			}

			out := make([]taskOutput, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, toTaskOutput(&t))
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

func taskCompleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a task completed",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			id, err := parseID(c)
			if err != nil {
				return outputError(err)
			}

			t, err := ops.Complete(c.Context, db, ops.CompleteInput{UserID: c.String("user"), TaskID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, toTaskOutput(t))
		},
	}
}

func taskUpdateCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a task's title, description or status",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description (empty clears it)"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "New status: pending|completed"},
		},
		Action: func(c *cli.Context) error {
			id, err := parseID(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.UpdateInput{UserID: c.String("user"), TaskID: id}
			if c.IsSet("title") {
				v := c.String("title")
				input.Title = &v
			}
			if c.IsSet("description") {
				v := c.String("description")
				input.Description = &v
			}
			if c.IsSet("status") {
				v := c.String("status")
				input.Status = &v
			}

			t, err := ops.Update(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, toTaskOutput(t))
		},
	}
}

func taskDeleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a task",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			id, err := parseID(c)
			if err != nil {
				return outputError(err)
			}

			out, err := ops.Delete(c.Context, db, ops.DeleteInput{UserID: c.String("user"), TaskID: id})
			if err != nil {
				return outputError(err)
			}
			if !out.Deleted {
				return outputError(errors.NewTaskNotFound(id))
			}
			return outputJSON(c.App.Writer, out)
		},
	}
}

// chatCmd sends one message through the chat orchestrator.
func chatCmd(db *sql.DB, cfg *config.Config, log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send a chat message (argument or stdin)",
		ArgsUsage: "[message]",
		Flags: []cli.Flag{
			userFlag(),
			&cli.Int64Flag{Name: "conversation", Aliases: []string{"c"}, Usage: "Continue an existing conversation"},
		},
		Action: func(c *cli.Context) error {
			message := strings.Join(c.Args().Slice(), " ")
			if message == "" && stdinHasData() {
				text, err := readStdin(os.Stdin)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				message = text
			}

			orch, err := newOrchestrator(c.Context, db, cfg, log, nil)
			if err != nil {
				return outputError(err)
			}

			req := chat.Request{UserID: c.String("user"), Message: message}
			if c.IsSet("conversation") {
				id := c.Int64("conversation")
				req.ConversationID = &id
			}

			resp, err := orch.Handle(c.Context, req)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, resp)
		},
	}
}

// tokenCmd issues an access token for a user ID, for local API testing.
func tokenCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an access token for a user (requires SECRET_KEY)",
		Flags: []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			tokens, err := newTokenManager(cfg)
			if err != nil {
				return outputError(err)
			}
			signed, expiresAt, err := tokens.Issue(c.String("user"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, map[string]any{
				"access_token": signed,
				"token_type":   "bearer",
				"expires_at":   expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
}

// Helper functions

func toTaskOutput(t *task.Task) taskOutput {
	return taskOutput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

// formatTime formats a Unix timestamp as RFC 3339 UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func parseID(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, errors.NewInvalidRequest("exactly one task id is required")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(c.Args().First()), 10, 64)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid task id %q", c.Args().First()))
	}
	return id, nil
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	appErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from r, trimmed.
func readStdin(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
