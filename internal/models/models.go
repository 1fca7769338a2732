// Package models defines the core data structures for Mandi Saathi.
//
// It includes routing decisions, market price records, negotiation strategies,
// and chat session types, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Intent classifies what a farmer message is asking for.
type Intent string

const (
	// IntentGreeting covers greetings, thanks, and casual conversation.
	IntentGreeting Intent = "GREETING"
	// IntentPriceOnly means the farmer only wants the current market price.
	IntentPriceOnly Intent = "PRICE_ONLY"
	// IntentNegotiationWithContext means negotiation advice is wanted and price
	// data is already present in the conversation history.
	IntentNegotiationWithContext Intent = "NEGOTIATION_WITH_CONTEXT"
	// IntentFullWorkflow means negotiation advice is wanted but prices must be
	// discovered first.
	IntentFullWorkflow Intent = "FULL_WORKFLOW"
	// IntentMissingInfo means essential information (location or commodity) is
	// absent and must be asked for.
	IntentMissingInfo Intent = "MISSING_INFO"
	// IntentGeneralQuery covers questions about the service itself.
	IntentGeneralQuery Intent = "GENERAL_QUERY"
)

// IsValidIntent checks if the given intent is one of the supported categories.
func IsValidIntent(i Intent) bool {
	switch i {
	case IntentGreeting, IntentPriceOnly, IntentNegotiationWithContext,
		IntentFullWorkflow, IntentMissingInfo, IntentGeneralQuery:
		return true
	default:
		return false
	}
}

// NeedsDirectResponse reports whether the intent is answered by the supervisor
// itself rather than a downstream pipeline.
func (i Intent) NeedsDirectResponse() bool {
	switch i {
	case IntentGreeting, IntentMissingInfo, IntentGeneralQuery:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrNoPriceData        = errors.New("no price data available")
	ErrInvalidPriceRecord = errors.New("invalid price record")
	ErrUnknownState       = errors.New("unknown state")
	ErrUnknownDistrict    = errors.New("unknown district")
	ErrSessionNotFound    = errors.New("session not found")
)

// ExtractedInfo holds the structured fields the classifier pulled out of the
// farmer's message and history.
type ExtractedInfo struct {
	State        string   `json:"state,omitempty"`
	District     string   `json:"district,omitempty"`
	Commodity    string   `json:"commodity,omitempty"`
	OfferedPrice *float64 `json:"offered_price,omitempty"`
	Quantity     string   `json:"quantity,omitempty"`
}

// PriceFromHistory is a snapshot of price data the classifier found in prior
// turns, used to skip a fresh discovery step.
type PriceFromHistory struct {
	Available  bool     `json:"available"`
	Commodity  string   `json:"commodity,omitempty"`
	ModalPrice *float64 `json:"modal_price,omitempty"`
	Location   string   `json:"location,omitempty"`
}

// RoutingDecision is the supervisor's full analysis of one incoming message.
// It is produced per request and never persisted; history reconstructs context
// on the next turn.
type RoutingDecision struct {
	Intent           Intent           `json:"intent"`
	Confidence       float64          `json:"confidence"`
	Reasoning        string           `json:"reasoning,omitempty"`
	ExtractedInfo    ExtractedInfo    `json:"extracted_info"`
	PriceFromHistory PriceFromHistory `json:"price_from_history"`
	MissingFields    []string         `json:"missing_fields,omitempty"`
	DirectResponse   string           `json:"direct_response,omitempty"`
}

// ConversationTurn is one user/assistant exchange inside a session.
type ConversationTurn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// Session summarizes a stored chat session.
type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	FirstMessage string    `json:"first_message"`
	MessageCount int       `json:"message_count"`
}

// PriceRecord is one mandi price observation for a commodity in a district.
type PriceRecord struct {
	State       string    `json:"state"`
	District    string    `json:"district"`
	Market      string    `json:"market,omitempty"`
	Commodity   string    `json:"commodity"`
	Variety     string    `json:"variety,omitempty"`
	Grade       string    `json:"grade,omitempty"`
	ModalPrice  float64   `json:"modal_price"`
	MinPrice    float64   `json:"min_price"`
	MaxPrice    float64   `json:"max_price"`
	MarketDate  string    `json:"market_date,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Validate checks the ordering invariant min <= modal <= max. The upstream
// data source does not enforce it, so records are checked before use.
func (p PriceRecord) Validate() error {
	if p.State == "" || p.District == "" || p.Commodity == "" {
		return ErrInvalidPriceRecord
	}
	if p.ModalPrice <= 0 {
		return ErrInvalidPriceRecord
	}
	if p.MinPrice > p.ModalPrice || p.ModalPrice > p.MaxPrice {
		return ErrInvalidPriceRecord
	}
	return nil
}

// DistrictEntry is one cached (state, district) pair from the provider's
// district listing. Inserts are idempotent.
type DistrictEntry struct {
	State          string `json:"state"`
	District       string `json:"district"`
	NormalizedName string `json:"normalized_name"`
}

// DealAssessment grades an offered price against the market rate.
type DealAssessment string

const (
	DealGood DealAssessment = "Good"
	DealFair DealAssessment = "Fair"
	DealBad  DealAssessment = "Bad"
)

// NegotiationStrategy is the numeric advice derived from a price record and an
// offered price. It is transient and never persisted independently.
type NegotiationStrategy struct {
	DealAssessment    DealAssessment `json:"deal_assessment"`
	PercentDifference float64        `json:"percent_difference"`
	CounterOffer      float64        `json:"counter_offer"`
	WalkAwayPrice     float64        `json:"walk_away_price"`
	MaxConcession     float64        `json:"max_concession"`
	TalkingPoints     []string       `json:"talking_points,omitempty"`
	Justification     string         `json:"justification,omitempty"`
}
