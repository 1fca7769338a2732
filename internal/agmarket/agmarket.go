// Package agmarket provides a client for the data.gov.in mandi price
// resource. It fetches current commodity prices filtered by state, district,
// and commodity, plus district listings via aggregation queries. Transient
// failures are retried with bounded exponential backoff.
package agmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// Defaults for the data.gov.in resource API.
const (
	// DefaultBaseURL is the data.gov.in resource API root.
	DefaultBaseURL = "https://api.data.gov.in/resource"
	// DefaultResourceID identifies the current daily mandi price dataset.
	DefaultResourceID = "35985678-0d79-46b4-9ed6-6f13308a1d24"
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the base backoff delay; it doubles per retry.
	DefaultRetryDelay = 2 * time.Second
	// DefaultRecordLimit caps the records requested per query.
	DefaultRecordLimit = 100
)

// Opts holds configuration for the provider client.
type Opts struct {
	APIKey     string
	BaseURL    string
	ResourceID string
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Option configures the provider client.
type Option func(*Opts)

// WithAPIKey sets the data.gov.in API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithResourceID overrides the dataset resource id.
func WithResourceID(id string) Option {
	return func(o *Opts) { o.ResourceID = id }
}

// WithRetryDelay overrides the base backoff delay (used by tests).
func WithRetryDelay(d time.Duration) Option {
	return func(o *Opts) { o.RetryDelay = d }
}

// Record is one raw provider record. The API reports numeric fields as
// strings, so values stay untyped until ParsePriceRecord.
type Record map[string]interface{}

// Client calls the data.gov.in resource API.
type Client struct {
	baseURL    string
	resourceID string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

// NewClient creates a provider client from options.
func NewClient(opts ...Option) *Client {
	cfg := Opts{
		BaseURL:    DefaultBaseURL,
		ResourceID: DefaultResourceID,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	slog.Debug("agmarket.NewClient: creating provider client",
		"baseURL", cfg.BaseURL, "apiKeySet", cfg.APIKey != "")
	return &Client{
		baseURL:    cfg.BaseURL,
		resourceID: cfg.ResourceID,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: cfg.HTTPClient,
	}
}

// FetchMandiPrices fetches prices for the exact (state, district, commodity)
// triple, most recent arrival date first.
func (c *Client) FetchMandiPrices(ctx context.Context, state, district, commodity string) ([]Record, error) {
	params := url.Values{}
	params.Set("filters[State]", state)
	params.Set("filters[District]", district)
	params.Set("filters[Commodity]", commodity)
	params.Set("sort[Arrival_Date]", "desc")
	params.Set("limit", strconv.Itoa(DefaultRecordLimit))
	return c.fetchRecords(ctx, params)
}

// FetchPricesByStateCommodity fetches prices for a commodity across all
// districts of a state, most recent first.
func (c *Client) FetchPricesByStateCommodity(ctx context.Context, state, commodity string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	params := url.Values{}
	params.Set("filters[State]", state)
	params.Set("filters[Commodity]", commodity)
	params.Set("sort[Arrival_Date]", "desc")
	params.Set("limit", strconv.Itoa(limit))
	return c.fetchRecords(ctx, params)
}

// FetchDistrictsForState queries the provider's district aggregation and
// returns the unique district names for a state, sorted.
func (c *Client) FetchDistrictsForState(ctx context.Context, state string) ([]string, error) {
	params := url.Values{}
	params.Set("filters[State]", state)
	params.Set("aggr[District][terms][field]", "District")
	params.Set("aggr[District][terms][size]", "1000")
	params.Set("aggr_show", "1")

	records, err := c.fetchRecords(ctx, params)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var districts []string
	for _, rec := range records {
		if d := stringField(rec, "District"); d != "" && !seen[d] {
			seen[d] = true
			districts = append(districts, d)
		}
	}
	sort.Strings(districts)
	return districts, nil
}

// fetchRecords performs the request with retry-on-transient-failure and
// decodes the records array.
func (c *Client) fetchRecords(ctx context.Context, params url.Values) ([]Record, error) {
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, c.resourceID, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base delay doubling per retry.
			wait := c.retryDelay * (1 << (attempt - 1))
			slog.Debug("agmarket.fetchRecords: retrying after backoff", "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		records, retryable, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	slog.Warn("agmarket.fetchRecords: request failed after retries", "error", lastErr, "maxRetries", c.maxRetries)
	return nil, fmt.Errorf("provider request failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]Record, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return payload.Records, false, nil
}

// ParsePriceRecord converts a raw provider record into a PriceRecord. The
// provider reports prices as strings; records with unparsable prices are
// rejected.
func ParsePriceRecord(rec Record) (models.PriceRecord, error) {
	out := models.PriceRecord{
		State:       stringField(rec, "State"),
		District:    stringField(rec, "District"),
		Market:      stringField(rec, "Market"),
		Commodity:   stringField(rec, "Commodity"),
		Variety:     stringField(rec, "Variety"),
		Grade:       stringField(rec, "Grade"),
		MarketDate:  stringField(rec, "Arrival_Date"),
		RetrievedAt: time.Now(),
	}

	var err error
	if out.ModalPrice, err = floatField(rec, "Modal_Price"); err != nil {
		return models.PriceRecord{}, err
	}
	if out.MinPrice, err = floatField(rec, "Min_Price"); err != nil {
		return models.PriceRecord{}, err
	}
	if out.MaxPrice, err = floatField(rec, "Max_Price"); err != nil {
		return models.PriceRecord{}, err
	}
	return out, nil
}

func stringField(rec Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%v", v)
}

func floatField(rec Record, key string) (float64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q", key, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unexpected %s type %T", key, v)
	}
}
