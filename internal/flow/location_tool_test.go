package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/store"
)

type stubDistrictResolver struct {
	districts []string
	err       error
	calls     int
}

func (s *stubDistrictResolver) GetDistrictsForState(ctx context.Context, state string) ([]string, error) {
	s.calls++
	return s.districts, s.err
}

func TestExecuteGetDistrictsMergesLiveListing(t *testing.T) {
	resolver := &stubDistrictResolver{districts: []string{"Ballia", "Sant Kabir Nagar"}}
	tool := NewLocationTool(store.NewInMemoryStore(), resolver)

	out, err := tool.ExecuteGetDistricts(context.Background(), map[string]interface{}{"state": "UP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected 1 live lookup, got %d", resolver.calls)
	}
	if !strings.Contains(out, "Sant Kabir Nagar") {
		t.Errorf("live-only district missing from listing: %q", out)
	}
	if strings.Count(out, "Ballia") != 1 {
		t.Errorf("district known both statically and live must appear once: %q", out)
	}
}

func TestExecuteGetDistrictsFallsBackToCacheOnLiveFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	st.StoreDistrict(models.DistrictEntry{State: "Uttar Pradesh", District: "Ghazipur"})
	resolver := &stubDistrictResolver{err: errors.New("connection refused")}
	tool := NewLocationTool(st, resolver)

	out, err := tool.ExecuteGetDistricts(context.Background(), map[string]interface{}{"state": "Uttar Pradesh"})
	if err != nil {
		t.Fatalf("live failure must not abort the tool: %v", err)
	}
	if !strings.Contains(out, "Ghazipur") {
		t.Errorf("previously cached district missing from listing: %q", out)
	}
	if !strings.Contains(out, "Ballia") {
		t.Errorf("static districts must still answer: %q", out)
	}
}

func TestExecuteGetDistrictsStaticOnlyWithoutDependencies(t *testing.T) {
	tool := NewLocationTool(nil, nil)

	out, err := tool.ExecuteGetDistricts(context.Background(), map[string]interface{}{"state": "Uttar Pradesh"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Districts of Uttar Pradesh") || !strings.Contains(out, "Varanasi") {
		t.Errorf("static table should answer on its own: %q", out)
	}
}
