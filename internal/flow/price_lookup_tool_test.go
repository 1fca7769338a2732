package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/prices"
)

func TestExecutePriceLookupFormatsResult(t *testing.T) {
	resolver := &stubResolver{
		result: &prices.PriceResult{
			Source: "api",
			Data: models.PriceRecord{
				State: "Uttar Pradesh", District: "Ballia", Commodity: "Tomato",
				Variety: "Hybrid", ModalPrice: 2730, MinPrice: 2500, MaxPrice: 2900,
			},
			NeighboringPrices: []models.PriceRecord{
				{State: "Uttar Pradesh", District: "Varanasi", Commodity: "Tomato",
					ModalPrice: 2650, MinPrice: 2500, MaxPrice: 2800},
			},
		},
	}
	tool := NewPriceLookupTool(resolver)

	out, err := tool.ExecutePriceLookup(context.Background(), map[string]interface{}{
		"state": "up", "district": "Balia", "commodity": "tamatar",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Rs 2730", "Rs 2500 - Rs 2900", "Varanasi: Rs 2650", "Ballia"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExecutePriceLookupNoData(t *testing.T) {
	resolver := &stubResolver{err: models.ErrNoPriceData}
	tool := NewPriceLookupTool(resolver)

	out, err := tool.ExecutePriceLookup(context.Background(), map[string]interface{}{
		"state": "Uttar Pradesh", "district": "Ballia", "commodity": "Tomato",
	})
	if err != nil {
		t.Fatalf("missing data must not be an error: %v", err)
	}
	if !strings.Contains(out, "No price data") {
		t.Errorf("expected a readable miss message, got %q", out)
	}
}

func TestExecutePriceLookupBadLocation(t *testing.T) {
	tool := NewPriceLookupTool(&stubResolver{})

	out, err := tool.ExecutePriceLookup(context.Background(), map[string]interface{}{
		"state": "Atlantis", "district": "Nowhere", "commodity": "Tomato",
	})
	if err != nil {
		t.Fatalf("unresolvable location must not be an error: %v", err)
	}
	if !strings.Contains(out, "Location problem") {
		t.Errorf("expected a location message, got %q", out)
	}
}

func TestExecuteCalculation(t *testing.T) {
	tool := NewCalculatorTool()

	out, err := tool.ExecuteCalculation(context.Background(), map[string]interface{}{
		"expression": "2730 * 0.93",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2730 * 0.93 = 2538.90" {
		t.Errorf("unexpected calculator output %q", out)
	}

	out, _ = tool.ExecuteCalculation(context.Background(), map[string]interface{}{
		"expression": "import os",
	})
	if !strings.Contains(out, "Error evaluating") {
		t.Errorf("identifiers should produce the error message, got %q", out)
	}
}

func TestExecuteNormalizeCommodity(t *testing.T) {
	tool := NewCommodityTool()
	out, err := tool.ExecuteNormalizeCommodity(context.Background(), map[string]interface{}{"name": "tamatar"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Normalized commodity: Tomato" {
		t.Errorf("unexpected output %q", out)
	}
}
