// Package store provides storage backends for Mandi Saathi.
//
// It persists chat sessions and messages, the market price cache, and the
// district lookup table. Backends: in-memory (tests), SQLite, PostgreSQL.
package store

import (
	"strings"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// Cache defaults, overridable via options on the retrieval layer.
const (
	// DefaultCacheValidity is how long a cached price record is served
	// before it is treated as absent.
	DefaultCacheValidity = 24 * time.Hour
	// DefaultRetentionDays is the default age threshold for the explicit
	// cleanup pass.
	DefaultRetentionDays = 7
)

// Store is the persistence contract shared by all backends. Implementations
// must be safe for concurrent use; the session counter update must be atomic
// so concurrent writers to the same session never lose increments.
type Store interface {
	// TouchSession creates the session row with message_count=1 on first
	// use, or atomically increments message_count and refreshes
	// last_updated on subsequent calls.
	TouchSession(sessionID, firstMessage string) error
	// GetSession returns session summary info, or nil if unknown.
	GetSession(sessionID string) (*models.Session, error)
	// ListSessions returns all sessions, most recently updated first.
	ListSessions() ([]models.Session, error)
	// AddChatMessage appends one user/assistant exchange to a session.
	AddChatMessage(sessionID, userMessage, assistantResponse string) error
	// GetChatHistory returns a session's turns in chronological order.
	GetChatHistory(sessionID string) ([]models.ConversationTurn, error)

	// SavePriceRecord stores one retrieved price observation.
	SavePriceRecord(rec models.PriceRecord) error
	// GetCachedPrice returns the newest record for the triple if it is
	// younger than validity, otherwise nil. Expired rows are not deleted
	// on read.
	GetCachedPrice(state, district, commodity string, validity time.Duration) (*models.PriceRecord, error)
	// CleanupPrices purges records older than the given number of days,
	// regardless of the validity window, and returns the count removed.
	CleanupPrices(olderThanDays int) (int64, error)

	// StoreDistrict records a provider-reported district; inserting an
	// existing (state, district) pair is a no-op.
	StoreDistrict(entry models.DistrictEntry) error
	// GetDistricts returns the cached district names for a state, sorted.
	GetDistricts(state string) ([]string, error)

	Close() error
}

// Opts holds shared configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for file paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
