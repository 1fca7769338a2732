package flow

import (
	"context"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/calc"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// CalculatorTool evaluates arithmetic expressions for the strategist bot so
// negotiation numbers never rely on model arithmetic.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// GetToolDefinition returns the OpenAI tool definition for the calculator.
func (ct *CalculatorTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "calculator",
			Description: openai.String("Evaluate an arithmetic expression with numbers and the operators + - * / % ** and parentheses. Use this for every calculation, e.g. '2730 * 0.93' or '((2730 - 1500) / 2730) * 100'."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"expression": map[string]interface{}{
						"type":        "string",
						"description": "Arithmetic expression to evaluate",
					},
				},
				"required": []string{"expression"},
			},
		},
	}
}

// ExecuteCalculation evaluates the expression. Invalid input produces a
// descriptive message, never an error.
func (ct *CalculatorTool) ExecuteCalculation(ctx context.Context, args map[string]interface{}) (string, error) {
	expression, _ := args["expression"].(string)
	result := calc.EvaluateString(expression)
	slog.Debug("CalculatorTool.ExecuteCalculation: evaluated expression", "expression", expression, "result", result)
	return result, nil
}
