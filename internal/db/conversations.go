package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/taskflow/internal/errors"
)

// Sender identifies who authored a persisted chat message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// Conversation is a chat thread owned by one user.
type Conversation struct {
	ID        int64
	UserID    string
	CreatedAt int64
}

// Message is one persisted turn of a conversation.
// Tool fields are set only on model turns that invoked a tool; ToolArguments
// and ToolOutput hold JSON text.
type Message struct {
	ID             int64
	ConversationID int64
	UserID         string
	Sender         Sender
	Text           string
	ToolName       *string
	ToolArguments  *string
	ToolOutput     *string
	CreatedAt      int64
}

// InsertConversation creates a new, empty conversation for userID.
func InsertConversation(ctx context.Context, db *sql.DB, userID string) (*Conversation, error) {
	now := time.Now().Unix()

	result, err := db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, created_at) VALUES (?, ?)`,
		userID, now,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &Conversation{ID: id, UserID: userID, CreatedAt: now}, nil
}

// GetConversation retrieves a conversation owned by userID.
func GetConversation(ctx context.Context, db *sql.DB, userID string, id int64) (*Conversation, error) {
	var c Conversation
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewConversationNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &c, nil
}

// InsertMessage appends a message and sets its ID and CreatedAt.
func InsertMessage(ctx context.Context, db *sql.DB, m *Message) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO messages (
			conversation_id, user_id, sender, text,
			tool_name, tool_arguments, tool_output, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		m.ConversationID, m.UserID, string(m.Sender), m.Text,
		toNullString(m.ToolName), toNullString(m.ToolArguments), toNullString(m.ToolOutput),
		m.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	m.ID = id

	return nil
}

// ListMessages returns every message of a conversation in insertion order.
func ListMessages(ctx context.Context, db *sql.DB, conversationID int64) ([]Message, error) {
	query := `
		SELECT id, conversation_id, user_id, sender, text,
		       tool_name, tool_arguments, tool_output, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id ASC
	`

	rows, err := db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			m                   Message
			sender              string
			toolName, args, out sql.NullString
		)
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.UserID, &sender, &m.Text,
			&toolName, &args, &out, &m.CreatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Sender = Sender(sender)
		m.ToolName = fromNullString(toolName)
		m.ToolArguments = fromNullString(args)
		m.ToolOutput = fromNullString(out)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return messages, nil
}
