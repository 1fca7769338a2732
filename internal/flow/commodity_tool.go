package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/normalize"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// CommodityTool maps colloquial commodity names to their canonical English
// form for the discovery bot.
type CommodityTool struct{}

// NewCommodityTool creates a commodity normalization tool.
func NewCommodityTool() *CommodityTool {
	return &CommodityTool{}
}

// GetToolDefinition returns the OpenAI tool definition for commodity
// normalization.
func (ct *CommodityTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "normalize_commodity",
			Description: openai.String("Convert a commodity name from Hindi/Hinglish or a misspelled form to its standard English name, e.g. 'tamatar' becomes 'Tomato'."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Commodity name as the farmer wrote it",
					},
				},
				"required": []string{"name"},
			},
		},
	}
}

// ExecuteNormalizeCommodity resolves the canonical commodity name. It always
// succeeds; unknown names are echoed back title-cased.
func (ct *CommodityTool) ExecuteNormalizeCommodity(ctx context.Context, args map[string]interface{}) (string, error) {
	name, _ := args["name"].(string)
	normalized := normalize.Commodity(name)
	slog.Debug("CommodityTool.ExecuteNormalizeCommodity: normalized commodity", "input", name, "output", normalized)
	return fmt.Sprintf("Normalized commodity: %s", normalized), nil
}
