package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

func TestCommodityExact(t *testing.T) {
	cases := map[string]string{
		"tamatar": "Tomato",
		"TAMATAR": "Tomato",
		"aalu":    "Potato",
		"pyaz":    "Onion",
		"gehun":   "Wheat",
		"Wheat":   "Wheat",
	}
	for in, want := range cases {
		if got := Commodity(in); got != want {
			t.Errorf("Commodity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommodityFuzzy(t *testing.T) {
	// One-letter slips should still resolve to the canonical name.
	if got := Commodity("tamataar"); got != "Tomato" {
		t.Errorf("Commodity(tamataar) = %q, want Tomato", got)
	}
	if got := Commodity("onionn"); got != "Onion" {
		t.Errorf("Commodity(onionn) = %q, want Onion", got)
	}
}

func TestCommodityUnknownEchoesTitleCased(t *testing.T) {
	if got := Commodity("dragonfruit"); got != "Dragonfruit" {
		t.Errorf("Commodity(dragonfruit) = %q, want title-cased echo", got)
	}
	if got := Commodity("xyzzy"); got != "Xyzzy" {
		t.Errorf("Commodity(xyzzy) = %q, want title-cased echo", got)
	}
}

func TestLocationExact(t *testing.T) {
	state, district, err := Location("Uttar Pradesh", "Ballia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != "Uttar Pradesh" || district != "Ballia" {
		t.Errorf("got (%q, %q)", state, district)
	}
}

func TestLocationStateAlias(t *testing.T) {
	state, district, err := Location("UP", "Varanasi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != "Uttar Pradesh" || district != "Varanasi" {
		t.Errorf("got (%q, %q)", state, district)
	}
}

func TestLocationFuzzyDistrict(t *testing.T) {
	// "Balia" is a common misspelling of "Ballia".
	state, district, err := Location("Uttar Pradesh", "Balia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != "Uttar Pradesh" || district != "Ballia" {
		t.Errorf("got (%q, %q), want Ballia in Uttar Pradesh", state, district)
	}
}

func TestLocationUnknownDistrictListsOptions(t *testing.T) {
	_, _, err := Location("Uttar Pradesh", "Zzzzz")
	if err == nil {
		t.Fatal("expected error for unknown district")
	}
	if !errors.Is(err, models.ErrUnknownDistrict) {
		t.Errorf("expected ErrUnknownDistrict, got %v", err)
	}
	if !strings.Contains(err.Error(), "Ballia") {
		t.Errorf("error should enumerate valid districts: %v", err)
	}
}

func TestLocationUnknownState(t *testing.T) {
	_, _, err := Location("Atlantis", "Ballia")
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
	if !errors.Is(err, models.ErrUnknownState) {
		t.Errorf("expected ErrUnknownState, got %v", err)
	}
}

func TestDistrictsForState(t *testing.T) {
	districts, ok := DistrictsForState("up")
	if !ok {
		t.Fatal("expected state to resolve")
	}
	found := false
	for _, d := range districts {
		if d == "Ballia" {
			found = true
		}
	}
	if !found {
		t.Errorf("Ballia missing from %v", districts)
	}

	if _, ok := DistrictsForState("Atlantis"); ok {
		t.Error("unknown state should not resolve")
	}
}

func TestSimilarity(t *testing.T) {
	if s := similarity("ballia", "ballia"); s != 1 {
		t.Errorf("identical strings should score 1, got %v", s)
	}
	if s := similarity("balia", "ballia"); s < 0.6 {
		t.Errorf("balia/ballia should clear the location cutoff, got %v", s)
	}
	if s := similarity("xyzzy", "ballia"); s > 0.3 {
		t.Errorf("unrelated strings should score low, got %v", s)
	}
}
