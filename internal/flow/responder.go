package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

// toolExecutor runs one named tool call with already-decoded arguments.
type toolExecutor func(ctx context.Context, args map[string]interface{}) (string, error)

// responder is the shared engine behind the bots: a system prompt, a bound
// tool set, and a dispatch table, driven through the tool-call loop.
type responder struct {
	name         string
	systemPrompt string
	genaiClient  genai.ClientInterface
	tools        []openai.ChatCompletionToolParam
	executors    map[string]toolExecutor
}

// respond runs the task through the model, executing requested tool calls for
// up to maxToolRounds rounds, and returns the final text.
func (r *responder) respond(ctx context.Context, task string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(r.systemPrompt),
		openai.UserMessage(task),
	}

	if len(r.tools) == 0 {
		return r.genaiClient.GenerateWithMessages(ctx, messages)
	}

	for round := 1; round <= maxToolRounds; round++ {
		slog.Debug("responder.respond: round start", "bot", r.name, "round", round, "messageCount", len(messages))

		toolResponse, err := r.genaiClient.GenerateWithTools(ctx, messages, r.tools)
		if err != nil {
			slog.Error("responder.respond: tool generation failed", "error", err, "bot", r.name, "round", round)
			return "", fmt.Errorf("failed to generate response with tools: %w", err)
		}

		if len(toolResponse.ToolCalls) == 0 {
			if toolResponse.Content != "" {
				slog.Debug("responder.respond: final response", "bot", r.name, "round", round, "responseLength", len(toolResponse.Content))
				return toolResponse.Content, nil
			}
			return "", fmt.Errorf("empty response from %s", r.name)
		}

		messages = r.appendToolResults(ctx, messages, toolResponse)
	}

	slog.Warn("responder.respond: hit maximum tool rounds", "bot", r.name, "maxRounds", maxToolRounds)
	return "", fmt.Errorf("%s exceeded %d tool rounds", r.name, maxToolRounds)
}

// appendToolResults executes the requested tool calls and appends the
// assistant tool-call message plus one tool result message per call.
func (r *responder) appendToolResults(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, toolResponse *genai.ToolCallResponse) []openai.ChatCompletionMessageParamUnion {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, tc := range toolResponse.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		})
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(toolResponse.Content),
			},
			ToolCalls: toolCalls,
		},
	})

	for _, tc := range toolResponse.ToolCalls {
		result := r.executeToolCall(ctx, tc)
		messages = append(messages, openai.ToolMessage(result, tc.ID))
	}
	return messages
}

// executeToolCall decodes the arguments and dispatches to the bound executor.
// Every failure path produces an error string result so the loop continues.
func (r *responder) executeToolCall(ctx context.Context, tc genai.ToolCall) string {
	executor, ok := r.executors[tc.Function.Name]
	if !ok {
		slog.Warn("responder.executeToolCall: unknown tool requested", "bot", r.name, "tool", tc.Function.Name)
		return fmt.Sprintf("Error: unknown tool %q", tc.Function.Name)
	}

	args := make(map[string]interface{})
	if len(tc.Function.Arguments) > 0 {
		if err := json.Unmarshal(tc.Function.Arguments, &args); err != nil {
			slog.Warn("responder.executeToolCall: malformed tool arguments",
				"bot", r.name, "tool", tc.Function.Name, "error", err)
			return fmt.Sprintf("Error: malformed arguments for %s: %s", tc.Function.Name, err)
		}
	}

	slog.Info("responder.executeToolCall: executing tool", "bot", r.name, "tool", tc.Function.Name)
	result, err := executor(ctx, args)
	if err != nil {
		slog.Error("responder.executeToolCall: tool execution failed",
			"bot", r.name, "tool", tc.Function.Name, "error", err)
		return fmt.Sprintf("Error executing %s: %s", tc.Function.Name, err)
	}
	if result == "" {
		result = "Tool executed successfully"
	}
	return result
}
