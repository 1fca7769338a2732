package flow

import (
	"math"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeStrategyBadDeal(t *testing.T) {
	s := ComputeStrategy(2730, 1500)

	if s.DealAssessment != models.DealBad {
		t.Errorf("expected Bad assessment, got %s", s.DealAssessment)
	}
	if math.Abs(s.PercentDifference-45.05) > 0.01 {
		t.Errorf("expected ~45.05%% difference, got %.2f", s.PercentDifference)
	}
	if !almostEqual(s.CounterOffer, 2730*0.93) {
		t.Errorf("counter-offer should be 93%% of modal, got %.2f", s.CounterOffer)
	}
	if !almostEqual(s.WalkAwayPrice, 2730*0.80) {
		t.Errorf("walk-away should be 80%% of modal, got %.2f", s.WalkAwayPrice)
	}
	if !almostEqual(s.MaxConcession, s.CounterOffer-s.WalkAwayPrice) {
		t.Errorf("max concession should be counter minus walk-away, got %.2f", s.MaxConcession)
	}
}

func TestComputeStrategyBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		offered float64
		want    models.DealAssessment
	}{
		{"at market", 1000, models.DealGood},
		{"exactly 5 percent below", 950, models.DealGood},
		{"just past 5 percent", 949, models.DealFair},
		{"exactly 15 percent below", 850, models.DealFair},
		{"just past 15 percent", 849, models.DealBad},
		{"above market", 1100, models.DealGood},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStrategy(1000, tc.offered).DealAssessment; got != tc.want {
				t.Errorf("offered %.0f against modal 1000: got %s, want %s", tc.offered, got, tc.want)
			}
		})
	}
}

func TestComputeStrategyTalkingPoints(t *testing.T) {
	s := ComputeStrategy(2730, 2200)
	if len(s.TalkingPoints) < 2 || len(s.TalkingPoints) > 3 {
		t.Errorf("expected 2-3 talking points, got %d", len(s.TalkingPoints))
	}
	if s.Justification == "" {
		t.Error("justification should not be empty")
	}
}

func TestFormatStrategyIncludesFigures(t *testing.T) {
	text := FormatStrategy(ComputeStrategy(2730, 1500))
	for _, want := range []string{"Bad", "Rs 2539", "Rs 2184", "Counter-Offer", "Walk-Away"} {
		if !strings.Contains(text, want) {
			t.Errorf("scaffold missing %q:\n%s", want, text)
		}
	}
}
