// Package prices resolves commodity prices through a tiered chain: local
// cache first, then the live provider, then a state-wide fallback when the
// exact district has no data.
package prices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/agmarket"
	"github.com/KisanLab/MandiSaathi/internal/models"
	"github.com/KisanLab/MandiSaathi/internal/store"
)

// maxNeighboringPrices caps the nearby-district records attached to an exact
// match.
const maxNeighboringPrices = 3

// stateWideFetchLimit is how many state-wide records are requested when
// looking for neighbors or a fallback district.
const stateWideFetchLimit = 5

// Provider is the remote price source. *agmarket.Client satisfies it.
type Provider interface {
	FetchMandiPrices(ctx context.Context, state, district, commodity string) ([]agmarket.Record, error)
	FetchPricesByStateCommodity(ctx context.Context, state, commodity string, limit int) ([]agmarket.Record, error)
	FetchDistrictsForState(ctx context.Context, state string) ([]string, error)
}

// PriceResult is the outcome of a price lookup.
type PriceResult struct {
	// Source is where the record came from: "cache", "api", or "fallback".
	Source string `json:"source"`
	// Data is the primary price record.
	Data models.PriceRecord `json:"data"`
	// NeighboringPrices holds up to three records from other districts of
	// the same state, provider order.
	NeighboringPrices []models.PriceRecord `json:"neighboring_prices,omitempty"`
	// Note carries a human-readable caveat, e.g. that a substitute district
	// was used.
	Note string `json:"note,omitempty"`
}

// Opts holds configuration for the price service.
type Opts struct {
	CacheValidity time.Duration
}

// Option configures the price service.
type Option func(*Opts)

// WithCacheValidity overrides how long a cached record counts as fresh.
func WithCacheValidity(d time.Duration) Option {
	return func(o *Opts) { o.CacheValidity = d }
}

// Service answers price queries using the cache-api-fallback chain.
type Service struct {
	store         store.Store
	provider      Provider
	cacheValidity time.Duration
}

// NewService creates a price service from a store, a provider, and options.
func NewService(st store.Store, provider Provider, opts ...Option) *Service {
	cfg := Opts{CacheValidity: store.DefaultCacheValidity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{store: st, provider: provider, cacheValidity: cfg.CacheValidity}
}

// GetMarketPrices resolves the price for (state, district, commodity).
// Tiers are tried in order: fresh cache hit, exact provider lookup, state-wide
// provider fallback. When every tier misses it returns models.ErrNoPriceData.
// Provider errors are logged and treated as tier misses.
func (s *Service) GetMarketPrices(ctx context.Context, state, district, commodity string) (*PriceResult, error) {
	if cached, err := s.store.GetCachedPrice(state, district, commodity, s.cacheValidity); err != nil {
		slog.Warn("Service.GetMarketPrices: cache lookup failed", "error", err)
	} else if cached != nil {
		slog.Debug("Service.GetMarketPrices: cache hit",
			"state", state, "district", district, "commodity", commodity)
		return &PriceResult{Source: "cache", Data: *cached}, nil
	}

	if result := s.lookupExact(ctx, state, district, commodity); result != nil {
		return result, nil
	}
	if result := s.lookupFallback(ctx, state, district, commodity); result != nil {
		return result, nil
	}

	slog.Info("Service.GetMarketPrices: no data in any tier",
		"state", state, "district", district, "commodity", commodity)
	return nil, fmt.Errorf("no price data for %s in %s, %s: %w",
		commodity, district, state, models.ErrNoPriceData)
}

// GetDistrictsForState lists the districts the provider currently reports for
// a state. Reported districts are persisted so later lookups survive provider
// outages; when the provider fails, the cached set is returned instead.
func (s *Service) GetDistrictsForState(ctx context.Context, state string) ([]string, error) {
	live, err := s.provider.FetchDistrictsForState(ctx, state)
	if err != nil {
		slog.Warn("Service.GetDistrictsForState: provider request failed, using cached districts",
			"error", err, "state", state)
		return s.store.GetDistricts(state)
	}
	for _, district := range live {
		entry := models.DistrictEntry{State: state, District: district}
		if err := s.store.StoreDistrict(entry); err != nil {
			slog.Warn("Service.GetDistrictsForState: failed to cache district",
				"error", err, "state", state, "district", district)
		}
	}
	return live, nil
}

// lookupExact queries the provider for the exact district and, on success,
// caches the record and attaches up to three neighboring-district prices.
func (s *Service) lookupExact(ctx context.Context, state, district, commodity string) *PriceResult {
	raw, err := s.provider.FetchMandiPrices(ctx, state, district, commodity)
	if err != nil {
		slog.Warn("Service.lookupExact: provider request failed", "error", err,
			"state", state, "district", district, "commodity", commodity)
		return nil
	}

	records := s.parseAndFilter(raw)
	if len(records) == 0 {
		return nil
	}

	rec := records[0]
	s.cacheRecord(rec)
	return &PriceResult{
		Source:            "api",
		Data:              rec,
		NeighboringPrices: s.neighboringPrices(ctx, state, district, commodity),
	}
}

// neighboringPrices fetches state-wide records and keeps up to three from
// districts other than the queried one, in provider order. Failures just mean
// no neighbors.
func (s *Service) neighboringPrices(ctx context.Context, state, district, commodity string) []models.PriceRecord {
	raw, err := s.provider.FetchPricesByStateCommodity(ctx, state, commodity, stateWideFetchLimit)
	if err != nil {
		slog.Debug("Service.neighboringPrices: state-wide request failed", "error", err)
		return nil
	}

	var neighbors []models.PriceRecord
	for _, rec := range s.parseAndFilter(raw) {
		if rec.District == district {
			continue
		}
		neighbors = append(neighbors, rec)
		if len(neighbors) == maxNeighboringPrices {
			break
		}
	}
	return neighbors
}

// lookupFallback takes the first valid state-wide record for the commodity
// and reports it with a note naming the substitute district.
func (s *Service) lookupFallback(ctx context.Context, state, district, commodity string) *PriceResult {
	raw, err := s.provider.FetchPricesByStateCommodity(ctx, state, commodity, stateWideFetchLimit)
	if err != nil {
		slog.Warn("Service.lookupFallback: provider request failed", "error", err,
			"state", state, "commodity", commodity)
		return nil
	}

	records := s.parseAndFilter(raw)
	if len(records) == 0 {
		return nil
	}

	rec := records[0]
	s.cacheRecord(rec)
	slog.Info("Service.lookupFallback: using substitute district",
		"requested", district, "substitute", rec.District)
	return &PriceResult{
		Source: "fallback",
		Data:   rec,
		Note: fmt.Sprintf("No data for %s; showing prices from %s in the same state.",
			district, rec.District),
	}
}

// parseAndFilter converts raw provider records, dropping any that fail to
// parse or violate the price ordering invariant.
func (s *Service) parseAndFilter(raw []agmarket.Record) []models.PriceRecord {
	var records []models.PriceRecord
	for _, r := range raw {
		rec, err := agmarket.ParsePriceRecord(r)
		if err != nil {
			slog.Warn("Service.parseAndFilter: skipping unparsable record", "error", err)
			continue
		}
		if err := rec.Validate(); err != nil {
			slog.Warn("Service.parseAndFilter: skipping invalid record", "error", err,
				"state", rec.State, "district", rec.District, "commodity", rec.Commodity)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *Service) cacheRecord(rec models.PriceRecord) {
	if err := s.store.SavePriceRecord(rec); err != nil {
		slog.Warn("Service.cacheRecord: failed to persist record", "error", err)
	}
}
