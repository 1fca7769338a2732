package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
)

// supervisorSystemPrompt pins the classifier to JSON output.
const supervisorSystemPrompt = "You are a routing supervisor for an agricultural advisory system. Respond only in valid JSON format."

// fallbackGreeting is the canned reply when the classifier is unavailable and
// the message looks like a greeting.
const fallbackGreeting = "Namaste! Mein Mandi Saathi hoon. Aapki fasal ka bhav jaanne ya mandi saudebazi mein madad ke liye poochein."

// greetingKeywords trigger the keyword fallback for short messages.
var greetingKeywords = []string{
	"hello", "hi", "namaste", "namaskar", "thanks", "thank", "dhanyavaad", "shukriya",
}

// Supervisor classifies farmer messages into intents and extracts the
// structured fields downstream steps need. It is stateless per call; the
// conversation history supplies all context.
type Supervisor struct {
	genaiClient genai.ClientInterface
}

// NewSupervisor creates a supervisor backed by the given GenAI client.
func NewSupervisor(genaiClient genai.ClientInterface) *Supervisor {
	slog.Debug("Supervisor.NewSupervisor: creating supervisor", "hasClient", genaiClient != nil)
	return &Supervisor{genaiClient: genaiClient}
}

// Classify analyzes one farmer message against the conversation history and
// returns a routing decision. It never returns an error: classifier failures,
// malformed JSON, and unknown intents all degrade to the keyword fallback.
func (s *Supervisor) Classify(ctx context.Context, message string, history []models.ConversationTurn) models.RoutingDecision {
	prompt := s.buildAnalysisPrompt(message, history)

	response, err := s.genaiClient.GenerateClassification(ctx, supervisorSystemPrompt, prompt)
	if err != nil {
		slog.Warn("Supervisor.Classify: classification request failed, using fallback", "error", err)
		return s.fallbackDecision(message)
	}

	decision, err := parseRoutingDecision(response)
	if err != nil {
		slog.Warn("Supervisor.Classify: failed to parse classifier response, using fallback",
			"error", err, "responseLength", len(response))
		return s.fallbackDecision(message)
	}

	slog.Info("Supervisor.Classify: message classified",
		"intent", decision.Intent,
		"confidence", decision.Confidence,
		"commodity", decision.ExtractedInfo.Commodity,
		"district", decision.ExtractedInfo.District)
	return decision
}

// parseRoutingDecision locates the JSON object in the classifier output and
// unmarshals it. Unknown intents are rejected so the caller falls back.
func parseRoutingDecision(response string) (models.RoutingDecision, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return models.RoutingDecision{}, fmt.Errorf("no JSON object in classifier response")
	}

	var decision models.RoutingDecision
	if err := json.Unmarshal([]byte(response[start:end+1]), &decision); err != nil {
		return models.RoutingDecision{}, fmt.Errorf("failed to unmarshal routing decision: %w", err)
	}
	if !models.IsValidIntent(decision.Intent) {
		return models.RoutingDecision{}, fmt.Errorf("unknown intent %q", decision.Intent)
	}
	return decision, nil
}

// fallbackDecision is the deterministic keyword classifier used when the
// model is unreachable or returns garbage.
func (s *Supervisor) fallbackDecision(message string) models.RoutingDecision {
	lower := strings.ToLower(message)
	if len(strings.Fields(message)) < 5 {
		for _, word := range greetingKeywords {
			if strings.Contains(lower, word) {
				return models.RoutingDecision{
					Intent:         models.IntentGreeting,
					Confidence:     0.7,
					Reasoning:      "Greeting detected via keyword matching",
					DirectResponse: fallbackGreeting,
				}
			}
		}
	}
	return models.RoutingDecision{
		Intent:     models.IntentFullWorkflow,
		Confidence: 0.5,
		Reasoning:  "Fallback - assuming full workflow needed",
	}
}

// buildAnalysisPrompt assembles the routing prompt: intent categories,
// context-detection rules, extraction rules, and the JSON response contract.
func (s *Supervisor) buildAnalysisPrompt(message string, history []models.ConversationTurn) string {
	historyText := formatChatHistory(history)
	if historyText == "" {
		historyText = "No previous conversation"
	}

	return fmt.Sprintf(`You are a supervisor agent for Mandi Saathi, a farming price advisory system.
Analyze the farmer's message and determine the appropriate action.

CONVERSATION HISTORY:
---
%s
---

FARMER'S CURRENT MESSAGE: "%s"

TASK: Analyze the intent and extract relevant information.

INTENT CATEGORIES:
1. GREETING - Simple greetings like "hello", "hi", "namaste", "thanks", "dhanyavaad", casual conversation
2. PRICE_ONLY - User only wants to know the current market price (not negotiating)
3. NEGOTIATION_WITH_CONTEXT - User wants negotiation advice AND price data is already available in chat history
4. FULL_WORKFLOW - User wants negotiation advice but needs price discovery first
5. MISSING_INFO - User wants help but hasn't provided essential info (location OR commodity)
6. GENERAL_QUERY - General questions about the service, how it works, etc.

CONTEXT DETECTION RULES:
- For NEGOTIATION_WITH_CONTEXT: Check if chat history already contains:
  * Market price for the commodity user is asking about
  * The same location context
  * If user mentions an offered price AND history has market price -> NEGOTIATION_WITH_CONTEXT

- For PRICE_ONLY: User asks things like:
  * "What's the price of wheat in Delhi?"
  * "Tamatar ka bhav kya hai Ballia mein?"
  * No mention of trader's offer or negotiation

- For FULL_WORKFLOW: User mentions:
  * A trader's offered price AND
  * Needs price discovery (no recent price in history for same commodity/location)

- For MISSING_INFO: User wants price/negotiation help but:
  * Missing location (state/district) AND can't be inferred from history
  * OR missing commodity name AND can't be inferred from history

EXTRACTION RULES:
- Extract state, district, commodity, offered_price if mentioned
- Check chat history for previously mentioned info
- Look for Hindi/Hinglish terms (tamatar=tomato, aloo=potato, pyaz=onion, gehu=wheat)

Respond in this exact JSON format:
{
    "intent": "<GREETING|PRICE_ONLY|NEGOTIATION_WITH_CONTEXT|FULL_WORKFLOW|MISSING_INFO|GENERAL_QUERY>",
    "confidence": <0.0-1.0>,
    "reasoning": "<brief explanation of why this intent>",
    "extracted_info": {
        "state": "<extracted state or null>",
        "district": "<extracted district or null>",
        "commodity": "<extracted commodity in English or null>",
        "offered_price": <extracted offered price as number or null>,
        "quantity": "<extracted quantity or null>"
    },
    "price_from_history": {
        "available": <true|false>,
        "commodity": "<commodity if available>",
        "modal_price": <price if available or null>,
        "location": "<location if available>"
    },
    "missing_fields": ["<list of missing required fields if MISSING_INFO>"],
    "direct_response": "<response text if GREETING, MISSING_INFO, or GENERAL_QUERY, else null>"
}

IMPORTANT for direct_response:
- For GREETING: Respond warmly in the same language as the farmer (Hindi/English/Hinglish)
- For MISSING_INFO: Politely ask for the missing information in farmer's language
- For GENERAL_QUERY: Explain Mandi Saathi's capabilities in farmer's language
- Keep responses concise and friendly

Examples of direct_response:
- GREETING (Hindi): "Namaste! Mein Mandi Saathi hoon. Aap apni fasal ka bhav jaanne ya mandi mein saudebazi mein madad ke liye mujhse pooch sakte hain."
- MISSING_INFO: "Bhai, kaunsi mandi ka bhav chahiye? State aur district bata do."
- GENERAL_QUERY: "Mein aapko mandi ke bhav batata hoon aur trader se accha dam dilwane mein madad karta hoon."`,
		historyText, message)
}
