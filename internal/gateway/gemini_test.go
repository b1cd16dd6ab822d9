package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	model    string
	deadline bool
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func candidate(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}}},
	}
}

func testCatalog() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("complete_task",
			mcp.WithDescription("Mark a specific task as completed."),
			mcp.WithNumber("task_id", mcp.Required(), func(s map[string]any) { s["type"] = "integer" }),
		),
		mcp.NewTool("list_tasks",
			mcp.WithString("status", mcp.Description("filter"), mcp.Enum("pending", "completed")),
		),
	}
}

func newTestGemini(f *fakeModels) *Gemini {
	return newGemini(f, GeminiOptions{Model: "test-model", Timeout: time.Second, Logger: zerolog.Nop()})
}

func TestGemini_TextReply(t *testing.T) {
	f := &fakeModels{resp: candidate(genai.NewPartFromText("Hello "), genai.NewPartFromText("there"))}
	g := newTestGemini(f)

	reply, err := g.Send(context.Background(), nil, UserText("hi"), testCatalog())
	require.NoError(t, err)
	require.Equal(t, "Hello there", reply.Text)
	require.Nil(t, reply.Call)
	require.Equal(t, "test-model", f.model)
	require.True(t, f.deadline)
}

func TestGemini_FunctionCallReply(t *testing.T) {
	f := &fakeModels{resp: candidate(
		genai.NewPartFromFunctionCall("complete_task", map[string]any{"task_id": float64(3)}),
		genai.NewPartFromFunctionCall("list_tasks", nil),
	)}
	g := newTestGemini(f)

	reply, err := g.Send(context.Background(), nil, UserText("finish 3"), testCatalog())
	require.NoError(t, err)
	require.NotNil(t, reply.Call)
	require.Equal(t, "complete_task", reply.Call.Name)
	require.Equal(t, float64(3), reply.Call.Args["task_id"])
}

func TestGemini_SkipsThoughts(t *testing.T) {
	f := &fakeModels{resp: candidate(&genai.Part{Text: "thinking...", Thought: true}, genai.NewPartFromText("done"))}
	g := newTestGemini(f)

	reply, err := g.Send(context.Background(), nil, UserText("x"), nil)
	require.NoError(t, err)
	require.Equal(t, "done", reply.Text)
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeModels
	}{
		{"transport", &fakeModels{err: errors.New("connection refused")}},
		{"no candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}},
		{"nil response", &fakeModels{}},
		{"empty candidate", &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGemini(tt.f).Send(context.Background(), nil, UserText("x"), nil)
			require.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestGemini_HistoryConversion(t *testing.T) {
	f := &fakeModels{resp: candidate(genai.NewPartFromText("ok"))}
	g := newTestGemini(f)

	history := []Turn{
		UserText("add milk"),
		ModelCall("add_task", map[string]any{"title": "milk"}),
		ToolOutput("add_task", map[string]any{"id": float64(1), "title": "milk", "status": "created"}),
		ModelText("Added."),
		{Role: RoleModel},
	}
	_, err := g.Send(context.Background(), history, UserText("thanks"), nil)
	require.NoError(t, err)

	require.Len(t, f.contents, 5)
	require.Equal(t, genai.RoleUser, f.contents[0].Role)
	require.Equal(t, "add milk", f.contents[0].Parts[0].Text)

	require.Equal(t, genai.RoleModel, f.contents[1].Role)
	require.Equal(t, "add_task", f.contents[1].Parts[0].FunctionCall.Name)
	require.Equal(t, "milk", f.contents[1].Parts[0].FunctionCall.Args["title"])

	require.Equal(t, genai.RoleUser, f.contents[2].Role)
	require.Equal(t, "add_task", f.contents[2].Parts[0].FunctionResponse.Name)
	require.Equal(t, "created", f.contents[2].Parts[0].FunctionResponse.Response["status"])

	require.Equal(t, genai.RoleModel, f.contents[3].Role)
	require.Equal(t, "thanks", f.contents[4].Parts[0].Text)
	require.Nil(t, f.config.Tools)
}

func TestToFunctionDeclarations(t *testing.T) {
	decls := toFunctionDeclarations(testCatalog())
	require.Len(t, decls, 2)

	complete := decls[0]
	require.Equal(t, "complete_task", complete.Name)
	require.Equal(t, "Mark a specific task as completed.", complete.Description)
	require.Equal(t, genai.TypeObject, complete.Parameters.Type)
	require.Equal(t, []string{"task_id"}, complete.Parameters.Required)
	require.Equal(t, genai.TypeInteger, complete.Parameters.Properties["task_id"].Type)

	status := decls[1].Parameters.Properties["status"]
	require.Equal(t, genai.TypeString, status.Type)
	require.Equal(t, "filter", status.Description)
	require.Equal(t, []string{"pending", "completed"}, status.Enum)
}

func TestToolsPassedToModel(t *testing.T) {
	f := &fakeModels{resp: candidate(genai.NewPartFromText("ok"))}
	_, err := newTestGemini(f).Send(context.Background(), nil, UserText("x"), testCatalog())
	require.NoError(t, err)
	require.Len(t, f.config.Tools, 1)
	require.Len(t, f.config.Tools[0].FunctionDeclarations, 2)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Send(context.Background(), nil, UserText("x"), nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiOptions{})
	require.Error(t, err)
}
