package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/normalize"
	"github.com/KisanLab/MandiSaathi/internal/prices"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// PriceResolver answers price queries. *prices.Service satisfies it.
type PriceResolver interface {
	GetMarketPrices(ctx context.Context, state, district, commodity string) (*prices.PriceResult, error)
}

// PriceLookupTool fetches current mandi prices for the discovery bot.
type PriceLookupTool struct {
	resolver PriceResolver
}

// NewPriceLookupTool creates a price lookup tool backed by the price service.
func NewPriceLookupTool(resolver PriceResolver) *PriceLookupTool {
	slog.Debug("PriceLookupTool.NewPriceLookupTool: creating price lookup tool", "hasResolver", resolver != nil)
	return &PriceLookupTool{resolver: resolver}
}

// GetToolDefinition returns the OpenAI tool definition for fetching prices.
func (plt *PriceLookupTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "fetch_mandi_prices",
			Description: openai.String("Fetch current mandi (market) prices for a commodity in a specific state and district. Returns the modal price, price range, and prices from neighboring districts."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"state": map[string]interface{}{
						"type":        "string",
						"description": "Indian state name, e.g. 'Uttar Pradesh'",
					},
					"district": map[string]interface{}{
						"type":        "string",
						"description": "District name within the state, e.g. 'Ballia'",
					},
					"commodity": map[string]interface{}{
						"type":        "string",
						"description": "Commodity name in English or Hindi/Hinglish, e.g. 'Tomato' or 'tamatar'",
					},
				},
				"required": []string{"state", "district", "commodity"},
			},
		},
	}
}

// ExecutePriceLookup normalizes the inputs and resolves the price through the
// cache-api-fallback chain. Misses produce a readable message, not an error.
func (plt *PriceLookupTool) ExecutePriceLookup(ctx context.Context, args map[string]interface{}) (string, error) {
	if plt.resolver == nil {
		return "", fmt.Errorf("price resolver not initialized")
	}

	state, _ := args["state"].(string)
	district, _ := args["district"].(string)
	commodityRaw, _ := args["commodity"].(string)
	slog.Debug("PriceLookupTool.ExecutePriceLookup: looking up prices",
		"state", state, "district", district, "commodity", commodityRaw)

	commodity := normalize.Commodity(commodityRaw)
	state, district, err := normalize.Location(state, district)
	if err != nil {
		return fmt.Sprintf("Location problem: %s", err), nil
	}

	result, err := plt.resolver.GetMarketPrices(ctx, state, district, commodity)
	if err != nil {
		if errors.Is(err, models.ErrNoPriceData) {
			return fmt.Sprintf("No price data found for %s in %s, %s. The mandi may not have reported prices recently.",
				commodity, district, state), nil
		}
		slog.Error("PriceLookupTool.ExecutePriceLookup: price lookup failed", "error", err)
		return "", fmt.Errorf("price lookup failed: %w", err)
	}

	return formatPriceResult(result), nil
}

// formatPriceResult renders a price result as the structured text block the
// discovery bot summarizes from.
func formatPriceResult(result *prices.PriceResult) string {
	rec := result.Data
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s, %s\n", rec.State, rec.District)
	fmt.Fprintf(&b, "Commodity: %s\n", rec.Commodity)
	if rec.Variety != "" {
		fmt.Fprintf(&b, "Variety: %s\n", rec.Variety)
	}
	fmt.Fprintf(&b, "Market Modal Price: Rs %.0f per quintal\n", rec.ModalPrice)
	fmt.Fprintf(&b, "Price Range: Rs %.0f - Rs %.0f\n", rec.MinPrice, rec.MaxPrice)
	if rec.MarketDate != "" {
		fmt.Fprintf(&b, "Market Date: %s\n", rec.MarketDate)
	}
	fmt.Fprintf(&b, "Data Source: %s\n", result.Source)
	if result.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", result.Note)
	}
	if len(result.NeighboringPrices) > 0 {
		b.WriteString("Nearby Markets:\n")
		for _, n := range result.NeighboringPrices {
			fmt.Fprintf(&b, "- %s: Rs %.0f per quintal\n", n.District, n.ModalPrice)
		}
	}
	return b.String()
}
