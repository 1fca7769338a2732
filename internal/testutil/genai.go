// Package testutil provides shared test doubles, most importantly a scripted
// GenAI client used by the flow and cli tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/openai/openai-go"
)

// MockGenAIClient is a scripted genai.ClientInterface. Responses are consumed
// in FIFO order per call shape; an exhausted queue yields an error so tests
// fail loudly instead of hanging in tool loops.
type MockGenAIClient struct {
	mu sync.Mutex

	MessageResponses        []string
	ToolResponses           []*genai.ToolCallResponse
	ClassificationResponses []string

	// Err, when set, is returned by every call.
	Err error

	// Recorded inputs for assertions.
	MessageCalls        [][]openai.ChatCompletionMessageParamUnion
	ToolCalls           [][]openai.ChatCompletionMessageParamUnion
	ClassificationCalls []string
}

// Compile-time check that MockGenAIClient implements ClientInterface.
var _ genai.ClientInterface = (*MockGenAIClient)(nil)

// GenerateWithMessages pops the next plain response.
func (m *MockGenAIClient) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessageCalls = append(m.MessageCalls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.MessageResponses) == 0 {
		return "", fmt.Errorf("mock: no message responses left")
	}
	resp := m.MessageResponses[0]
	m.MessageResponses = m.MessageResponses[1:]
	return resp, nil
}

// GenerateWithTools pops the next tool response.
func (m *MockGenAIClient) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ToolCalls = append(m.ToolCalls, messages)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.ToolResponses) == 0 {
		return nil, fmt.Errorf("mock: no tool responses left")
	}
	resp := m.ToolResponses[0]
	m.ToolResponses = m.ToolResponses[1:]
	return resp, nil
}

// GenerateClassification pops the next classification payload.
func (m *MockGenAIClient) GenerateClassification(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassificationCalls = append(m.ClassificationCalls, userPrompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ClassificationResponses) == 0 {
		return "", fmt.Errorf("mock: no classification responses left")
	}
	resp := m.ClassificationResponses[0]
	m.ClassificationResponses = m.ClassificationResponses[1:]
	return resp, nil
}

// TextResponse builds a tool response carrying only final text.
func TextResponse(content string) *genai.ToolCallResponse {
	return &genai.ToolCallResponse{Content: content}
}

// ToolCallResponse builds a tool response requesting a single tool call.
func ToolCallResponse(id, name, arguments string) *genai.ToolCallResponse {
	return &genai.ToolCallResponse{
		ToolCalls: []genai.ToolCall{
			{
				ID: id,
				Function: genai.ToolCallFunction{
					Name:      name,
					Arguments: []byte(arguments),
				},
			},
		},
	}
}
