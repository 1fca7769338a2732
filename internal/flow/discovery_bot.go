package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/store"
	"github.com/openai/openai-go"
)

// priceDiscoverySystemPrompt defines the discovery bot's role and method.
const priceDiscoverySystemPrompt = `You are a Price Discovery Specialist for Indian agricultural markets with deep
knowledge of mandi systems across all states. You understand farmer's language
whether they speak in Hindi, English, or Hinglish. You can identify locations
even with spelling mistakes (like 'Balia' for 'Ballia') and commodities in
local languages (like 'tamatar' for tomato).

Your goal: extract location (state, district) and commodity details from the
farmer's message, validate the information using your tools, and fetch current
market prices.

Method:
1. Validate and correct location names with the validate_location tool
2. Normalize the commodity name with the normalize_commodity tool
3. Fetch current market prices with the fetch_mandi_prices tool
4. Include prices from neighboring districts for comparison

Always validate locations and normalize commodity names before fetching
prices. Report the structured price data exactly as the tools return it.`

// PriceDiscoveryBot resolves location and commodity from the farmer's message
// and fetches current market prices through its tools.
type PriceDiscoveryBot struct {
	responder responder
}

// NewPriceDiscoveryBot creates the discovery bot with its four tools bound.
func NewPriceDiscoveryBot(genaiClient genai.ClientInterface, resolver PriceResolver, districts DistrictResolver, st store.Store) *PriceDiscoveryBot {
	slog.Debug("PriceDiscoveryBot.NewPriceDiscoveryBot: creating price discovery bot")

	priceLookup := NewPriceLookupTool(resolver)
	commodity := NewCommodityTool()
	location := NewLocationTool(st, districts)

	return &PriceDiscoveryBot{
		responder: responder{
			name:         "PriceDiscoveryBot",
			systemPrompt: priceDiscoverySystemPrompt,
			genaiClient:  genaiClient,
			tools: []openai.ChatCompletionToolParam{
				priceLookup.GetToolDefinition(),
				commodity.GetToolDefinition(),
				location.GetValidateToolDefinition(),
				location.GetDistrictsToolDefinition(),
			},
			executors: map[string]toolExecutor{
				"fetch_mandi_prices":      priceLookup.ExecutePriceLookup,
				"normalize_commodity":     commodity.ExecuteNormalizeCommodity,
				"validate_location":       location.ExecuteValidateLocation,
				"get_districts_for_state": location.ExecuteGetDistricts,
			},
		},
	}
}

// Discover runs the price discovery task and returns the structured price
// summary text.
func (b *PriceDiscoveryBot) Discover(ctx context.Context, message string, history []models.ConversationTurn, extracted models.ExtractedInfo) (string, error) {
	task := fmt.Sprintf(`Analyze this farmer's message and fetch price information:
%s
Farmer's CURRENT Message: "%s"

Pre-extracted info (verify and use):
- State: %s
- District: %s
- Commodity: %s
- Offered Price: %s

Your tasks:
1. Validate the location using your tools
2. Normalize the commodity name (handle Hindi/Hinglish)
3. Fetch current market prices for the commodity
4. Get prices from neighboring districts for comparison

Provide a structured summary with:
- Validated location (state, district)
- Normalized commodity name
- Current modal market price
- Price range (min-max)
- Neighboring district prices`,
		historyBlock(history),
		message,
		valueOr(extracted.State, "Not specified"),
		valueOr(extracted.District, "Not specified"),
		valueOr(extracted.Commodity, "Not specified"),
		priceOr(extracted.OfferedPrice, "Not specified"))

	return b.responder.respond(ctx, task)
}
