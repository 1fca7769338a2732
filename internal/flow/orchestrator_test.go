package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/genai"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/prices"
	"github.com/KisanLab/MandiSaathi/internal/store"
	"github.com/KisanLab/MandiSaathi/internal/testutil"
)

type stubResolver struct {
	result *prices.PriceResult
	err    error
}

func (s *stubResolver) GetMarketPrices(ctx context.Context, state, district, commodity string) (*prices.PriceResult, error) {
	return s.result, s.err
}

func floatPtr(v float64) *float64 { return &v }

func TestRunPriceOnlyChainsDiscoveryAndCommunication(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ToolResponses: []*genai.ToolCallResponse{
			testutil.TextResponse("Market Modal Price: Rs 2730 per quintal"),
		},
		MessageResponses: []string{"Bhai, Ballia mein tamatar Rs 2730 chal raha hai."},
	}
	o := NewOrchestrator(mock, &stubResolver{}, nil, store.NewInMemoryStore())

	decision := models.RoutingDecision{
		Intent:        models.IntentPriceOnly,
		ExtractedInfo: models.ExtractedInfo{State: "Uttar Pradesh", District: "Ballia", Commodity: "Tomato"},
	}
	reply := o.Run(context.Background(), decision, "Tamatar ka bhav?", nil)
	if !strings.Contains(reply, "2730") {
		t.Errorf("reply should carry the discovered price, got %q", reply)
	}
}

func TestRunFullWorkflowRunsThreeSteps(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ToolResponses: []*genai.ToolCallResponse{
			testutil.TextResponse("Market Modal Price: Rs 2730 per quintal"),
			testutil.TextResponse("Deal Assessment: Bad. Counter-Offer: Rs 2539."),
		},
		MessageResponses: []string{"Bhai, trader bahut kam de raha hai. Rs 2539 maango, Rs 2184 se neeche mat bechna."},
	}
	o := NewOrchestrator(mock, &stubResolver{}, nil, store.NewInMemoryStore())

	decision := models.RoutingDecision{
		Intent: models.IntentFullWorkflow,
		ExtractedInfo: models.ExtractedInfo{
			State: "Uttar Pradesh", District: "Ballia", Commodity: "Tomato",
			OfferedPrice: floatPtr(1500),
		},
	}
	reply := o.Run(context.Background(), decision, "Trader 1500 de raha hai, kya karu?", nil)
	if !strings.Contains(reply, "2539") {
		t.Errorf("reply should carry the counter-offer, got %q", reply)
	}

	// The strategist's task must include the discovery output.
	if len(mock.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool-capable steps, got %d", len(mock.ToolCalls))
	}
}

func TestRunNegotiationWithContextSkipsDiscovery(t *testing.T) {
	mock := &testutil.MockGenAIClient{
		ToolResponses: []*genai.ToolCallResponse{
			testutil.TextResponse("Deal Assessment: Bad. Counter-Offer: Rs 2539."),
		},
		MessageResponses: []string{"Rs 2539 maango bhai."},
	}
	o := NewOrchestrator(mock, &stubResolver{}, nil, store.NewInMemoryStore())

	decision := models.RoutingDecision{
		Intent:        models.IntentNegotiationWithContext,
		ExtractedInfo: models.ExtractedInfo{OfferedPrice: floatPtr(1500)},
		PriceFromHistory: models.PriceFromHistory{
			Available: true, Commodity: "Tomato", ModalPrice: floatPtr(2730), Location: "Ballia",
		},
	}
	reply := o.Run(context.Background(), decision, "Trader 1500 de raha hai", nil)
	if !strings.Contains(reply, "2539") {
		t.Errorf("unexpected reply %q", reply)
	}

	// One tool-capable step only, and its task carries both the history price
	// block and the pre-computed scaffold.
	if len(mock.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool-capable step, got %d", len(mock.ToolCalls))
	}
}

func TestRunConvertsStepErrorToApology(t *testing.T) {
	mock := &testutil.MockGenAIClient{Err: errors.New("model down")}
	o := NewOrchestrator(mock, &stubResolver{}, nil, store.NewInMemoryStore())

	decision := models.RoutingDecision{Intent: models.IntentFullWorkflow}
	reply := o.Run(context.Background(), decision, "Tamatar ka bhav?", nil)
	if !strings.Contains(reply, "Maaf kijiye") {
		t.Errorf("step failure should produce the apology, got %q", reply)
	}
	if !strings.Contains(reply, "model down") {
		t.Errorf("apology should append the error detail, got %q", reply)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	o := NewOrchestrator(nil, &stubResolver{}, nil, store.NewInMemoryStore())

	decision := models.RoutingDecision{Intent: models.IntentFullWorkflow}
	reply := o.Run(context.Background(), decision, "Tamatar ka bhav?", nil)
	if !strings.Contains(reply, "Maaf kijiye") {
		t.Errorf("panic should produce the apology, got %q", reply)
	}
}
