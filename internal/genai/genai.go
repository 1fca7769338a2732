// Package genai provides GenAI-enhanced operations using the OpenAI API.
//
// It wraps chat completions for three call shapes used across the service:
// plain generation, low-temperature JSON classification, and tool-call
// generation for responders with bound tools.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Default model configuration
const (
	// DefaultModel is used for responder generation.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultClassifierTemperature keeps routing decisions consistent.
	DefaultClassifierTemperature = 0.3
	// DefaultClassifierMaxTokens bounds the classification payload.
	DefaultClassifierMaxTokens = 1000
)

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model used for all calls.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = openai.ChatModel(model) }
}

// ToolCallFunction is the function invocation requested by the model.
type ToolCallFunction struct {
	Name      string
	Arguments json.RawMessage
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID       string
	Function ToolCallFunction
}

// ToolCallResponse is the result of a generation that may request tool calls.
type ToolCallResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ClientInterface defines the generation operations the flow layer depends
// on. Tests substitute mock implementations.
type ClientInterface interface {
	// GenerateWithMessages produces a plain text completion.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
	// GenerateWithTools produces a completion that may request tool calls.
	GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error)
	// GenerateClassification produces a low-temperature JSON-object completion.
	GenerateClassification(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat  openai.Client
	model openai.ChatModel
}

// Compile-time check that Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)

// NewClient initializes a new GenAI client from options. The API key is
// required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		slog.Error("Client.NewClient: OpenAI API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	slog.Debug("Client.NewClient: creating GenAI client", "model", cfg.Model)
	return &Client{
		chat:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model: cfg.Model,
	}, nil
}

// GenerateWithMessages generates a response for the provided message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	completion, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("Client.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// GenerateWithTools generates a response that may include tool calls for the
// provided tool definitions.
func (c *Client) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error) {
	completion, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		slog.Error("Client.GenerateWithTools: completion failed", "error", err, "toolCount", len(tools))
		return nil, fmt.Errorf("chat completion with tools failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	msg := completion.Choices[0].Message
	resp := &ToolCallResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID: tc.ID,
			Function: ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			},
		})
	}
	slog.Debug("Client.GenerateWithTools: completion received",
		"hasContent", resp.Content != "", "toolCallCount", len(resp.ToolCalls))
	return resp, nil
}

// GenerateClassification runs a low-temperature completion constrained to a
// JSON object response, used by the supervisor's intent analysis.
func (c *Client) GenerateClassification(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	completion, err := c.chat.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(DefaultClassifierTemperature),
		MaxCompletionTokens: openai.Int(DefaultClassifierMaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		slog.Error("Client.GenerateClassification: completion failed", "error", err)
		return "", fmt.Errorf("classification completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
