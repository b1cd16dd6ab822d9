package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/gateway"
)

// History persists and replays conversation turns.
type History struct {
	db *sql.DB
}

// New creates a History backed by database.
func New(database *sql.DB) *History {
	return &History{db: database}
}

// LoadOrCreate returns the user's conversation with the given ID, or a new
// conversation when conversationID is nil. A conversation that is missing or
// owned by another user yields CONVERSATION_NOT_FOUND.
func (h *History) LoadOrCreate(ctx context.Context, conversationID *int64, userID string) (*db.Conversation, error) {
	if conversationID != nil {
		return db.GetConversation(ctx, h.db, userID, *conversationID)
	}
	return db.InsertConversation(ctx, h.db, userID)
}

// AppendUserTurn records the user's message.
func (h *History) AppendUserTurn(ctx context.Context, conv *db.Conversation, text string) (*db.Message, error) {
	m := &db.Message{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Sender:         db.SenderUser,
		Text:           text,
	}
	if err := db.InsertMessage(ctx, h.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ModelTurn is the content of a model reply to persist.
type ModelTurn struct {
	Text          string
	ToolName      string
	ToolArguments map[string]any
	ToolResult    map[string]any
}

// AppendModelTurn records a model reply. At least one of Text and ToolName
// must be set.
func (h *History) AppendModelTurn(ctx context.Context, conv *db.Conversation, turn ModelTurn) (*db.Message, error) {
	if strings.TrimSpace(turn.Text) == "" && turn.ToolName == "" {
		return nil, errors.NewInvalidRequest("model turn needs text or a tool name")
	}

	m := &db.Message{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Sender:         db.SenderModel,
		Text:           turn.Text,
	}
	if turn.ToolName != "" {
		name := turn.ToolName
		m.ToolName = &name

		args := turn.ToolArguments
		if args == nil {
			args = map[string]any{}
		}
		encoded, err := encodeObject(args)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		m.ToolArguments = &encoded

		if turn.ToolResult != nil {
			out, err := encodeObject(turn.ToolResult)
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			m.ToolOutput = &out
		}
	}

	if err := db.InsertMessage(ctx, h.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Messages returns every persisted turn of the conversation in order.
func (h *History) Messages(ctx context.Context, conv *db.Conversation) ([]db.Message, error) {
	return db.ListMessages(ctx, h.db, conv.ID)
}

// Reconstruct converts persisted messages into gateway turns.
//
// A message with a tool name becomes a tool call turn, followed by a tool
// result turn when output was recorded, followed by the message text when
// present. If the stored arguments or output are missing or not valid JSON
// objects the message degrades to a plain text turn. Messages with no text
// and no usable tool data are skipped.
func Reconstruct(messages []db.Message) []gateway.Turn {
	turns := make([]gateway.Turn, 0, len(messages))
	for _, m := range messages {
		if toolTurns, ok := reconstructTool(m); ok {
			turns = append(turns, toolTurns...)
			continue
		}
		if m.Text == "" {
			continue
		}
		if m.Sender == db.SenderUser {
			turns = append(turns, gateway.UserText(m.Text))
		} else {
			turns = append(turns, gateway.ModelText(m.Text))
		}
	}
	return turns
}

func reconstructTool(m db.Message) ([]gateway.Turn, bool) {
	if m.ToolName == nil || *m.ToolName == "" || m.ToolArguments == nil {
		return nil, false
	}
	name := *m.ToolName

	args, ok := decodeObject(*m.ToolArguments)
	if !ok {
		return nil, false
	}
	turns := []gateway.Turn{gateway.ModelCall(name, args)}

	if m.ToolOutput != nil {
		result, ok := decodeObject(*m.ToolOutput)
		if !ok {
			return nil, false
		}
		turns = append(turns, gateway.ToolOutput(name, result))
	}

	if m.Text != "" {
		turns = append(turns, gateway.ModelText(m.Text))
	}
	return turns, true
}

func encodeObject(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeObject parses a JSON object. Anything else (including null) fails.
func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
