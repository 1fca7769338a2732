package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/testutil"
)

func TestClassifyParsesValidResponse(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ClassificationResponses: []string{`Here is the analysis:
{
  "intent": "PRICE_ONLY",
  "confidence": 0.9,
  "reasoning": "Farmer asks for tomato price",
  "extracted_info": {"state": "Uttar Pradesh", "district": "Ballia", "commodity": "Tomato"},
  "price_from_history": {"available": false}
}`},
	}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "Tamatar ka bhav kya hai Ballia mein?", nil)
	if decision.Intent != models.IntentPriceOnly {
		t.Errorf("expected PRICE_ONLY, got %s", decision.Intent)
	}
	if decision.ExtractedInfo.District != "Ballia" || decision.ExtractedInfo.Commodity != "Tomato" {
		t.Errorf("extraction lost: %+v", decision.ExtractedInfo)
	}
	if decision.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %.2f", decision.Confidence)
	}
}

func TestClassifyNeverErrorsOnTransportFailure(t *testing.T) {
	mock := &testutil.MockGenAIClient{Err: errors.New("api unreachable")}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "Namaste", nil)
	if decision.Intent != models.IntentGreeting {
		t.Errorf("short greeting should fall back to GREETING, got %s", decision.Intent)
	}
	if decision.Confidence != 0.7 {
		t.Errorf("fallback greeting confidence should be 0.7, got %.2f", decision.Confidence)
	}
	if decision.DirectResponse == "" {
		t.Error("fallback greeting should carry a canned direct response")
	}
}

func TestClassifyFallbackDefaultsToFullWorkflow(t *testing.T) {
	mock := &testutil.MockGenAIClient{Err: errors.New("api unreachable")}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "Trader tamatar ke liye 1500 de raha hai Ballia mein, kya karu?", nil)
	if decision.Intent != models.IntentFullWorkflow {
		t.Errorf("expected FULL_WORKFLOW fallback, got %s", decision.Intent)
	}
	if decision.Confidence != 0.5 {
		t.Errorf("fallback confidence should be 0.5, got %.2f", decision.Confidence)
	}
	if decision.DirectResponse != "" {
		t.Error("full workflow fallback must not carry a direct response")
	}
}

func TestClassifyLongGreetingIsNotShortCircuited(t *testing.T) {
	// Greeting keywords only trigger the fallback for messages under 5 tokens.
	mock := &testutil.MockGenAIClient{Err: errors.New("api unreachable")}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "hello bhai mujhe tamatar ka bhav batao Ballia mein", nil)
	if decision.Intent != models.IntentFullWorkflow {
		t.Errorf("long message should fall back to FULL_WORKFLOW, got %s", decision.Intent)
	}
}

func TestClassifyRejectsUnknownIntent(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ClassificationResponses: []string{`{"intent": "BANANA", "confidence": 0.9}`},
	}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "namaste", nil)
	if decision.Intent != models.IntentGreeting {
		t.Errorf("unknown intent should degrade to fallback, got %s", decision.Intent)
	}
}

func TestClassifyRejectsMalformedJSON(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ClassificationResponses: []string{`not json at all`},
	}
	s := NewSupervisor(mock)

	decision := s.Classify(context.Background(), "what is the price of wheat in Ballia", nil)
	if decision.Intent != models.IntentFullWorkflow {
		t.Errorf("malformed JSON should degrade to fallback, got %s", decision.Intent)
	}
}

func TestClassifyIncludesHistoryInPrompt(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ClassificationResponses: []string{`{"intent": "NEGOTIATION_WITH_CONTEXT", "confidence": 0.8,
			"extracted_info": {"offered_price": 1500},
			"price_from_history": {"available": true, "commodity": "Tomato", "modal_price": 2730, "location": "Ballia"}}`},
	}
	s := NewSupervisor(mock)

	history := []models.ConversationTurn{
		{User: "Tamatar ka bhav Ballia mein?", Assistant: "Bhav Rs 2730 hai."},
	}
	decision := s.Classify(context.Background(), "Trader 1500 de raha hai", history)
	if decision.Intent != models.IntentNegotiationWithContext {
		t.Fatalf("expected NEGOTIATION_WITH_CONTEXT, got %s", decision.Intent)
	}
	if !decision.PriceFromHistory.Available || *decision.PriceFromHistory.ModalPrice != 2730 {
		t.Errorf("history price lost: %+v", decision.PriceFromHistory)
	}

	prompt := mock.ClassificationCalls[0]
	for _, want := range []string{"Farmer: Tamatar ka bhav Ballia mein?", "Assistant: Bhav Rs 2730 hai."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing history line %q", want)
		}
	}
}
