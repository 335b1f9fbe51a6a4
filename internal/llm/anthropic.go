package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	anthropicDefaultMaxTokens = 4096
)

// AnthropicClient speaks the Messages API.
type AnthropicClient struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

func NewAnthropicClient(settings Settings) *AnthropicClient {
	baseURL := strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/")
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicClient{
		baseURL: baseURL,
		model:   settings.Model,
		apiKey:  settings.APIKey,
		http:    newHTTPClient(settings.Timeout),
	}
}

type anthropicBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Input     any    `json:"input,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	ToolChoice  *anthropicChoice   `json:"tool_choice,omitempty"`
	Temperature float32            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicChoice struct {
	Type string `json:"type"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c == nil {
		return ChatResponse{}, fmt.Errorf("llm client is nil")
	}
	if err := validateRequest(req); err != nil {
		return ChatResponse{}, err
	}
	if req.Model == "" {
		req.Model = c.model
	}
	payload, err := json.Marshal(buildAnthropicRequest(req))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-api-key", c.apiKey)
	request.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(request)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr anthropicError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return ChatResponse{}, fmt.Errorf("status %s: %s: %s", resp.Status, apiErr.Error.Type, apiErr.Error.Message)
		}
		return ChatResponse{}, fmt.Errorf("status %s", resp.Status)
	}

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}
	msg := Message{Role: RoleAssistant}
	texts := []string{}
	for _, block := range decoded.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			args, _ := block.Input.(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	msg.Content = strings.Join(texts, "\n")
	if strings.TrimSpace(msg.Content) == "" && len(msg.ToolCalls) == 0 {
		return ChatResponse{}, fmt.Errorf("response empty")
	}
	return ChatResponse{Message: msg, FinishReason: decoded.StopReason}, nil
}

// buildAnthropicRequest maps the transcript onto alternating user/assistant
// turns: tool results become user tool_result blocks and consecutive turns
// with the same role are merged.
func buildAnthropicRequest(req ChatRequest) anthropicRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	out := anthropicRequest{
		Model:       req.Model,
		System:      req.System,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	for _, msg := range req.Messages {
		role := RoleUser
		var blocks []anthropicBlock
		switch msg.Role {
		case RoleTool:
			blocks = append(blocks, anthropicBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: nonEmpty(msg.Content)})
		case RoleAssistant:
			role = RoleAssistant
			if msg.Content != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input := call.Args
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: call.ID, Name: call.Name, Input: input})
			}
		default:
			blocks = append(blocks, anthropicBlock{Type: "text", Text: nonEmpty(msg.Content)})
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == role {
			out.Messages[n-1].Content = append(out.Messages[n-1].Content, blocks...)
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{Role: role, Content: blocks})
	}
	for _, spec := range req.Tools {
		out.Tools = append(out.Tools, anthropicTool{Name: spec.Name, Description: spec.Description, InputSchema: spec.Parameters})
	}
	if len(out.Tools) > 0 && req.ToolChoice != "" {
		out.ToolChoice = &anthropicChoice{Type: req.ToolChoice}
	}
	return out
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}
