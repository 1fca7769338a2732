package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/store"
)

// apologyMessage is the fixed Hinglish apology used when a pipeline step
// fails. The error detail is appended for the farmer to relay.
const apologyMessage = "Maaf kijiye, kuch gadbad ho gayi. Kripya dobara koshish karein."

// Orchestrator owns the responder bots and runs the step chain the
// supervisor's routing decision calls for.
type Orchestrator struct {
	discovery    *PriceDiscoveryBot
	strategist   *NegotiationStrategistBot
	communicator *CommunicatorBot
}

// NewOrchestrator wires the three bots to their dependencies.
func NewOrchestrator(genaiClient genai.ClientInterface, resolver PriceResolver, districts DistrictResolver, st store.Store) *Orchestrator {
	slog.Debug("Orchestrator.NewOrchestrator: creating orchestrator")
	return &Orchestrator{
		discovery:    NewPriceDiscoveryBot(genaiClient, resolver, districts, st),
		strategist:   NewNegotiationStrategistBot(genaiClient),
		communicator: NewCommunicatorBot(genaiClient),
	}
}

// Run executes the pipeline for one routed message and returns the
// farmer-facing reply. Step errors and panics are converted to the apology
// message; Run never propagates a failure. Direct-response intents should not
// reach Run, but are handled with a full workflow as a safety net.
func (o *Orchestrator) Run(ctx context.Context, decision models.RoutingDecision, message string, history []models.ConversationTurn) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Orchestrator.Run: pipeline panicked", "panic", r, "intent", decision.Intent)
			reply = fmt.Sprintf("%s (Error: %v)", apologyMessage, r)
		}
	}()

	slog.Info("Orchestrator.Run: executing workflow", "intent", decision.Intent, "confidence", decision.Confidence)

	var err error
	switch decision.Intent {
	case models.IntentPriceOnly:
		reply, err = o.runPriceOnly(ctx, decision, message, history)
	case models.IntentNegotiationWithContext:
		reply, err = o.runNegotiationWithContext(ctx, decision, message, history)
	default:
		reply, err = o.runFullWorkflow(ctx, decision, message, history)
	}
	if err != nil {
		slog.Error("Orchestrator.Run: workflow failed", "error", err, "intent", decision.Intent)
		return fmt.Sprintf("%s (Error: %s)", apologyMessage, err)
	}
	return reply
}

// runPriceOnly executes discovery then communication.
func (o *Orchestrator) runPriceOnly(ctx context.Context, decision models.RoutingDecision, message string, history []models.ConversationTurn) (string, error) {
	priceSummary, err := o.discovery.Discover(ctx, message, history, decision.ExtractedInfo)
	if err != nil {
		return "", fmt.Errorf("price discovery step failed: %w", err)
	}
	reply, err := o.communicator.Communicate(ctx, message, history, priceSummary, false)
	if err != nil {
		return "", fmt.Errorf("communication step failed: %w", err)
	}
	return reply, nil
}

// runNegotiationWithContext executes strategy then communication, feeding the
// strategist the price block recovered from history.
func (o *Orchestrator) runNegotiationWithContext(ctx context.Context, decision models.RoutingDecision, message string, history []models.ConversationTurn) (string, error) {
	priceContext := formatPriceFromHistory(decision.PriceFromHistory)
	strategy, err := o.strategist.Strategize(ctx, message, history, decision, priceContext)
	if err != nil {
		return "", fmt.Errorf("negotiation step failed: %w", err)
	}
	reply, err := o.communicator.Communicate(ctx, message, history, strategy, true)
	if err != nil {
		return "", fmt.Errorf("communication step failed: %w", err)
	}
	return reply, nil
}

// runFullWorkflow executes discovery, strategy, then communication, passing
// each step's output into the next step's task.
func (o *Orchestrator) runFullWorkflow(ctx context.Context, decision models.RoutingDecision, message string, history []models.ConversationTurn) (string, error) {
	priceSummary, err := o.discovery.Discover(ctx, message, history, decision.ExtractedInfo)
	if err != nil {
		return "", fmt.Errorf("price discovery step failed: %w", err)
	}

	priceContext := fmt.Sprintf("PRICE DISCOVERY RESULTS:\n---\n%s\n---\n", priceSummary)
	strategy, err := o.strategist.Strategize(ctx, message, history, decision, priceContext)
	if err != nil {
		return "", fmt.Errorf("negotiation step failed: %w", err)
	}

	combined := fmt.Sprintf("%s\n\nNEGOTIATION STRATEGY:\n%s", priceSummary, strategy)
	reply, err := o.communicator.Communicate(ctx, message, history, combined, true)
	if err != nil {
		return "", fmt.Errorf("communication step failed: %w", err)
	}
	return reply, nil
}

// formatPriceFromHistory renders the supervisor's history price snapshot as a
// context block for the strategist.
func formatPriceFromHistory(p models.PriceFromHistory) string {
	if !p.Available {
		return ""
	}
	modal := "Unknown"
	if p.ModalPrice != nil {
		modal = fmt.Sprintf("%.2f", *p.ModalPrice)
	}
	return fmt.Sprintf(`PRICE DATA FROM PREVIOUS CONVERSATION:
- Commodity: %s
- Location: %s
- Modal Market Price: Rs %s per quintal
`,
		valueOr(p.Commodity, "Unknown"),
		valueOr(p.Location, "Unknown"),
		modal)
}
