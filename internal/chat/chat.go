package chat

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/taskflow/internal/db"
	"github.com/hpungsan/taskflow/internal/errors"
	"github.com/hpungsan/taskflow/internal/fallback"
	"github.com/hpungsan/taskflow/internal/gateway"
	"github.com/hpungsan/taskflow/internal/history"
	"github.com/hpungsan/taskflow/internal/tools"
)

// ToolExecutor runs tool calls on behalf of a user.
type ToolExecutor interface {
	Call(ctx context.Context, userID, name string, args map[string]any) (*tools.Call, error)
}

// Request is one incoming chat message.
type Request struct {
	UserID         string
	Message        string
	ConversationID *int64
}

// Response is the reply to a chat message.
type Response struct {
	Response       string `json:"response"`
	ConversationID int64  `json:"conversation_id"`
}

// Options holds the orchestrator's collaborators.
type Options struct {
	History  *history.History
	Executor ToolExecutor
	Gateway  gateway.Gateway
	Fallback *fallback.Parser
	Catalog  []mcp.Tool
	Metrics  *Metrics
	Logger   zerolog.Logger
}

// Orchestrator runs the per-message chat loop.
type Orchestrator struct {
	history  *history.History
	exec     ToolExecutor
	gateway  gateway.Gateway
	fallback *fallback.Parser
	catalog  []mcp.Tool
	metrics  *Metrics
	log      zerolog.Logger
}

// New creates an Orchestrator. A nil Gateway behaves like gateway.Disabled.
func New(opts Options) *Orchestrator {
	gw := opts.Gateway
	if gw == nil {
		gw = gateway.Disabled{}
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = tools.Catalog()
	}
	return &Orchestrator{
		history:  opts.History,
		exec:     opts.Executor,
		gateway:  gw,
		fallback: opts.Fallback,
		catalog:  catalog,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
}

// Handle processes one user message.
//
// Exactly one model turn is persisted per successful call and the returned
// text is never empty. Gateway and tool failures never surface as errors;
// only an invalid request, an unknown conversation or a storage failure do.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.NewInvalidRequest("message is required")
	}

	conv, err := o.history.LoadOrCreate(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.history.AppendUserTurn(ctx, conv, req.Message)
	if err != nil {
		return nil, err
	}

	messages, err := o.history.Messages(ctx, conv)
	if err != nil {
		return nil, err
	}
	prior := make([]db.Message, 0, len(messages))
	for _, m := range messages {
		if m.ID != userMsg.ID {
			prior = append(prior, m)
		}
	}

	turn, path := o.converse(ctx, req.UserID, history.Reconstruct(prior), req.Message)
	if strings.TrimSpace(turn.Text) == "" {
		turn.Text = fallback.DefaultReply
	}

	if _, err := o.history.AppendModelTurn(ctx, conv, turn); err != nil {
		return nil, err
	}

	o.metrics.recordRequest(path)
	o.log.Info().
		Int64("conversation_id", conv.ID).
		Str("user_id", req.UserID).
		Str("path", path).
		Str("tool", turn.ToolName).
		Msg("chat handled")

	return &Response{Response: turn.Text, ConversationID: conv.ID}, nil
}

// converse runs the gateway exchange, switching to the fallback parser when
// the first call fails or asks for something that cannot be executed.
func (o *Orchestrator) converse(ctx context.Context, userID string, turns []gateway.Turn, message string) (history.ModelTurn, string) {
	userTurn := gateway.UserText(message)

	reply, err := o.send(ctx, turns, userTurn)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", userID).Msg("gateway failed, using fallback")
		return o.runFallback(ctx, userID, message), PathFallback
	}
	if reply.Call == nil {
		return history.ModelTurn{Text: reply.Text}, PathGateway
	}

	call, err := o.exec.Call(ctx, userID, reply.Call.Name, reply.Call.Args)
	if err != nil {
		o.log.Warn().Err(err).Str("tool", reply.Call.Name).Msg("model requested an unusable tool call, using fallback")
		return o.runFallback(ctx, userID, message), PathFallback
	}
	o.metrics.recordToolCall(call.Name, call.Failed())

	turn := history.ModelTurn{
		ToolName:      call.Name,
		ToolArguments: call.Args,
		ToolResult:    call.Result,
	}

	// The tool has already run. A failed second call keeps its effect and
	// only loses the narrative text.
	followUp := make([]gateway.Turn, 0, len(turns)+2)
	followUp = append(followUp, turns...)
	followUp = append(followUp, userTurn, gateway.ModelCall(call.Name, call.Args))
	final, err := o.send(ctx, followUp, gateway.ToolOutput(call.Name, call.Result))
	if err != nil {
		o.log.Warn().Err(err).Str("tool", call.Name).Msg("gateway failed after tool call")
		return turn, PathGateway
	}
	turn.Text = final.Text

	return turn, PathGateway
}

func (o *Orchestrator) send(ctx context.Context, turns []gateway.Turn, message gateway.Turn) (*gateway.Reply, error) {
	start := time.Now()
	reply, err := o.gateway.Send(ctx, turns, message, o.catalog)
	if err == nil && reply == nil {
		err = gateway.ErrUnavailable
	}
	o.metrics.observeGateway(time.Since(start), err == nil)
	return reply, err
}

func (o *Orchestrator) runFallback(ctx context.Context, userID, message string) history.ModelTurn {
	if o.fallback == nil {
		return history.ModelTurn{Text: fallback.DefaultReply}
	}

	res, err := o.fallback.Handle(ctx, userID, message)
	if err != nil {
		o.log.Error().Err(err).Str("user_id", userID).Msg("fallback failed")
		return history.ModelTurn{Text: fallback.DefaultReply}
	}

	turn := history.ModelTurn{Text: res.Text}
	if res.Call != nil {
		o.metrics.recordToolCall(res.Call.Name, res.Call.Failed())
		turn.ToolName = res.Call.Name
		turn.ToolArguments = res.Call.Args
		turn.ToolResult = res.Call.Result
	}
	return turn
}
