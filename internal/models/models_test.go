package models

import "testing"

func TestIsValidIntent(t *testing.T) {
	valid := []Intent{IntentGreeting, IntentPriceOnly, IntentNegotiationWithContext, IntentFullWorkflow, IntentMissingInfo, IntentGeneralQuery}
	for _, in := range valid {
		if !IsValidIntent(in) {
			t.Errorf("expected %s to be valid", in)
		}
	}
	if IsValidIntent(Intent("SOMETHING_ELSE")) {
		t.Error("unexpected intent accepted")
	}
}

func TestNeedsDirectResponse(t *testing.T) {
	direct := []Intent{IntentGreeting, IntentMissingInfo, IntentGeneralQuery}
	for _, in := range direct {
		if !in.NeedsDirectResponse() {
			t.Errorf("%s should be answered directly", in)
		}
	}
	pipeline := []Intent{IntentPriceOnly, IntentNegotiationWithContext, IntentFullWorkflow}
	for _, in := range pipeline {
		if in.NeedsDirectResponse() {
			t.Errorf("%s should run a pipeline", in)
		}
	}
}

func TestPriceRecordValidate(t *testing.T) {
	good := PriceRecord{State: "Uttar Pradesh", District: "Ballia", Commodity: "Tomato", ModalPrice: 2730, MinPrice: 2500, MaxPrice: 2900}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	inverted := good
	inverted.MinPrice = 3000
	if err := inverted.Validate(); err == nil {
		t.Error("expected error for min > modal")
	}

	zero := good
	zero.ModalPrice = 0
	if err := zero.Validate(); err == nil {
		t.Error("expected error for zero modal price")
	}

	missing := good
	missing.Commodity = ""
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing commodity")
	}
}
