package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiClient serves both the google (Gemini API key) and vertex (GCP
// project/location with application default credentials) providers.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, settings Settings) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	cc.HTTPOptions.BaseURL = settings.BaseURL
	switch settings.Provider {
	case ProviderVertex:
		// genai only wires application default credentials into a transport
		// it builds itself, so HTTPClient stays nil and the timeout moves to
		// the request context.
		cc.Backend = genai.BackendVertexAI
		cc.Project = settings.Project
		cc.Location = settings.Location
	default:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = settings.APIKey
		cc.HTTPClient = newHTTPClient(settings.Timeout)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &GeminiClient{client: client, model: settings.Model}
	if settings.Provider == ProviderVertex {
		c.timeout = settings.Timeout
	}
	return c, nil
}

func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c == nil || c.client == nil {
		return ChatResponse{}, fmt.Errorf("llm client is nil")
	}
	if err := validateRequest(req); err != nil {
		return ChatResponse{}, err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	temp := req.Temperature
	gc := &genai.GenerateContentConfig{Temperature: &temp}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			params := schemaFromJSON(spec.Parameters)
			// Gemini rejects object schemas without properties.
			if params != nil && params.Type == genai.TypeObject && len(params.Properties) == 0 {
				params = nil
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  params,
			})
		}
		gc.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		if req.ToolChoice == ToolChoiceNone {
			gc.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone}}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.Models.GenerateContent(ctx, model, geminiContents(req.Messages), gc)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatResponse{}, fmt.Errorf("response missing candidates")
	}
	candidate := resp.Candidates[0]
	msg := Message{Role: RoleAssistant}
	texts := []string{}
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: id, Name: part.FunctionCall.Name, Args: args})
			continue
		}
		if part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
	}
	msg.Content = strings.Join(texts, "")
	if strings.TrimSpace(msg.Content) == "" && len(msg.ToolCalls) == 0 {
		return ChatResponse{}, fmt.Errorf("response empty")
	}
	return ChatResponse{Message: msg, FinishReason: string(candidate.FinishReason)}, nil
}

type geminiTurn struct {
	model bool
	parts []*genai.Part
}

// geminiContents groups the transcript into alternating user/model contents.
// Tool results travel as user function responses.
func geminiContents(messages []Message) []*genai.Content {
	turns := []geminiTurn{}
	for _, msg := range messages {
		isModel := msg.Role == RoleAssistant
		var parts []*genai.Part
		switch msg.Role {
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args}})
			}
		case RoleTool:
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: map[string]any{"output": msg.Content},
			}})
		default:
			parts = append(parts, genai.NewPartFromText(nonEmpty(msg.Content)))
		}
		if len(parts) == 0 {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].model == isModel {
			turns[n-1].parts = append(turns[n-1].parts, parts...)
			continue
		}
		turns = append(turns, geminiTurn{model: isModel, parts: parts})
	}
	out := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.model {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromParts(turn.parts, role))
	}
	return out
}

// schemaFromJSON converts the JSON-schema subset the tool registry emits.
func schemaFromJSON(raw map[string]any) *genai.Schema {
	if raw == nil {
		return nil
	}
	schema := &genai.Schema{}
	if typ, ok := raw["type"].(string); ok {
		schema.Type = schemaType(typ)
	}
	if desc, ok := raw["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		schema.Properties = map[string]*genai.Schema{}
		for name, value := range props {
			if child, ok := value.(map[string]any); ok {
				schema.Properties[name] = schemaFromJSON(child)
			}
		}
	}
	switch required := raw["required"].(type) {
	case []string:
		schema.Required = append(schema.Required, required...)
	case []any:
		for _, item := range required {
			if name, ok := item.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		schema.Items = schemaFromJSON(items)
	}
	return schema
}

func schemaType(typ string) genai.Type {
	switch strings.ToLower(typ) {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
