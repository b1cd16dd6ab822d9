package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// generator is the subset of *genai.Models used by Gemini.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is a Gateway backed by the Gemini API.
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// GeminiOptions configures NewGemini.
type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewGemini creates a Gemini gateway.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newGemini(client.Models, opts), nil
}

func newGemini(models generator, opts GeminiOptions) *Gemini {
	return &Gemini{
		models:  models,
		model:   opts.Model,
		timeout: opts.Timeout,
		log:     opts.Logger,
	}
}

// Send implements Gateway.
func (g *Gemini) Send(ctx context.Context, history []Turn, message Turn, catalog []mcp.Tool) (*Reply, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if c := toContent(turn); c != nil {
			contents = append(contents, c)
		}
	}
	msg := toContent(message)
	if msg == nil {
		return nil, fmt.Errorf("%w: empty message", ErrUnavailable)
	}
	contents = append(contents, msg)

	config := &genai.GenerateContentConfig{}
	if decls := toFunctionDeclarations(catalog); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	g.log.Debug().
		Str("model", g.model).
		Int("contents", len(contents)).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("generate content")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return classify(resp)
}

// classify turns the first candidate into text or the first function call.
func classify(resp *genai.GenerateContentResponse) (*Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrUnavailable)
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil, fmt.Errorf("%w: empty candidate", ErrUnavailable)
	}

	reply := &Reply{}
	var text strings.Builder
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			if reply.Call == nil {
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				reply.Call = &ToolCall{Name: part.FunctionCall.Name, Args: args}
			}
			continue
		}
		if part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}
	reply.Text = text.String()

	return reply, nil
}

// toContent converts a history turn. Turns with nothing to send yield nil.
func toContent(turn Turn) *genai.Content {
	switch {
	case turn.Result != nil:
		return &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromFunctionResponse(turn.Result.Name, turn.Result.Response)},
		}
	case turn.Call != nil:
		return &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{genai.NewPartFromFunctionCall(turn.Call.Name, turn.Call.Args)},
		}
	case turn.Text != "":
		role := genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		return &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(turn.Text)},
		}
	}
	return nil
}

// toFunctionDeclarations converts MCP tool descriptors into Gemini declarations.
func toFunctionDeclarations(catalog []mcp.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(catalog))
	for _, tool := range catalog {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(tool.InputSchema.Properties)),
			Required:   tool.InputSchema.Required,
		}
		for name, raw := range tool.InputSchema.Properties {
			if prop, ok := raw.(map[string]any); ok {
				params.Properties[name] = toSchema(prop)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return decls
}

// toSchema converts one JSON Schema property.
func toSchema(prop map[string]any) *genai.Schema {
	s := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if d, ok := prop["description"].(string); ok {
		s.Description = d
	}
	switch enum := prop["enum"].(type) {
	case []string:
		s.Enum = enum
	case []any:
		for _, v := range enum {
			if str, ok := v.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	if items, ok := prop["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}
