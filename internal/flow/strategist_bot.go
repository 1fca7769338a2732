package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/openai/openai-go"
)

// negotiationSystemPrompt defines the strategist bot's role and methodology.
const negotiationSystemPrompt = `You are a seasoned agricultural commodities negotiation expert with 20+ years
of experience helping farmers get fair prices in mandis across India. You
understand market dynamics, how to calculate fair counter-offers based on
market rates, the impact of variety, grade, and quantity on pricing, when a
deal is good enough to accept versus when to walk away, and practical
negotiation tactics that work with traders.

Your analysis methodology:
1. Percentage difference: ((market_price - offered_price) / market_price) * 100
2. Classify deals:
   - Good: offered price within 5% of market rate
   - Fair: offered price 5-15% below market rate
   - Bad: offered price more than 15% below market rate
3. Counter-offer: aim for 90-95% of the modal market price
4. Walk-away price: never go below 80% of the modal market price
5. Max concession: difference between counter-offer and walk-away price

IMPORTANT: You have a Calculator tool. USE IT for any calculation not already
given to you instead of doing mental math. When the task includes
pre-computed negotiation numbers, use those exact figures.

You always provide specific numerical amounts (not ranges), clear
justification based on market data, and practical talking points the farmer
can use. You are direct, practical, and always on the farmer's side.`

// NegotiationStrategistBot turns price data and the trader's offer into a
// concrete negotiation plan.
type NegotiationStrategistBot struct {
	responder responder
}

// NewNegotiationStrategistBot creates the strategist bot with the calculator
// bound.
func NewNegotiationStrategistBot(genaiClient genai.ClientInterface) *NegotiationStrategistBot {
	slog.Debug("NegotiationStrategistBot.NewNegotiationStrategistBot: creating strategist bot")

	calculator := NewCalculatorTool()
	return &NegotiationStrategistBot{
		responder: responder{
			name:         "NegotiationStrategistBot",
			systemPrompt: negotiationSystemPrompt,
			genaiClient:  genaiClient,
			tools: []openai.ChatCompletionToolParam{
				calculator.GetToolDefinition(),
			},
			executors: map[string]toolExecutor{
				"calculator": calculator.ExecuteCalculation,
			},
		},
	}
}

// Strategize runs the negotiation analysis task. priceContext carries the
// discovery output or the price block recovered from history; when the
// supervisor extracted both a modal price and an offered price, the
// deterministic strategy scaffold is included so the numbers are exact.
func (b *NegotiationStrategistBot) Strategize(ctx context.Context, message string, history []models.ConversationTurn, decision models.RoutingDecision, priceContext string) (string, error) {
	extracted := decision.ExtractedInfo

	scaffold := ""
	if extracted.OfferedPrice != nil && decision.PriceFromHistory.Available &&
		decision.PriceFromHistory.ModalPrice != nil && *decision.PriceFromHistory.ModalPrice > 0 {
		scaffold = FormatStrategy(ComputeStrategy(*decision.PriceFromHistory.ModalPrice, *extracted.OfferedPrice)) + "\n"
	}

	task := fmt.Sprintf(`Today's Date: %s

Analyze the conversation and price data:
%s
Farmer's CURRENT Message: "%s"

%s
%sExtracted from current message:
- Offered Price: %s
- Quantity: %s

Your tasks:
1. Calculate the percentage difference between offered price and market rate
2. Classify the deal as Good/Fair/Bad
3. Generate a specific counter-offer amount (aim for 90-95%% of modal price)
4. Provide counter arguments to help the farmer back their claim
5. Calculate the walk-away price (minimum 80%% of modal price)
6. Determine the maximum concession the farmer should make
7. Create 2-3 practical talking points
8. If the deal is really bad, advise walking away with reasoning

NOTE: Never assume the trader's offer if not mentioned by the farmer.
If the farmer only asks about price, answer with only price details.`,
		time.Now().Format("02 January 2006"),
		historyBlock(history),
		message,
		priceContext,
		scaffold,
		priceOr(extracted.OfferedPrice, "Not mentioned"),
		valueOr(extracted.Quantity, "Not mentioned"))

	return b.responder.respond(ctx, task)
}
