// Package store provides storage backends for Mandi Saathi.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/KisanLab/MandiSaathi/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) TouchSession(sessionID, firstMessage string) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_sessions (session_id, first_message, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (session_id) DO UPDATE SET
			message_count = chat_sessions.message_count + 1,
			last_updated = NOW()`,
		sessionID, firstMessage)
	if err != nil {
		slog.Error("PostgresStore TouchSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetSession(sessionID string) (*models.Session, error) {
	var sess models.Session
	var firstMessage sql.NullString
	err := s.db.QueryRow(`
		SELECT session_id, created_at, last_updated, first_message, message_count
		FROM chat_sessions WHERE session_id = $1`, sessionID).
		Scan(&sess.ID, &sess.CreatedAt, &sess.LastUpdated, &firstMessage, &sess.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	sess.FirstMessage = firstMessage.String
	return &sess, nil
}

func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`
		SELECT session_id, created_at, last_updated, first_message, message_count
		FROM chat_sessions ORDER BY last_updated DESC`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var firstMessage sql.NullString
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.LastUpdated, &firstMessage, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sess.FirstMessage = firstMessage.String
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) AddChatMessage(sessionID, userMessage, assistantResponse string) error {
	chatData, err := json.Marshal(map[string]string{"user": userMessage, "assistant": assistantResponse})
	if err != nil {
		return fmt.Errorf("failed to marshal chat data: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO chat_messages (session_id, user_message, assistant_response, chat_data)
		VALUES ($1, $2, $3, $4)`,
		sessionID, userMessage, assistantResponse, chatData)
	if err != nil {
		slog.Error("PostgresStore AddChatMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to insert chat message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetChatHistory(sessionID string) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(`
		SELECT user_message, assistant_response, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		slog.Error("PostgresStore GetChatHistory query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.User, &t.Assistant, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat message rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) SavePriceRecord(rec models.PriceRecord) error {
	if rec.RetrievedAt.IsZero() {
		rec.RetrievedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO market_prices
		(state, district, commodity, modal_price, min_price, max_price, variety, grade, market_date, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.State, rec.District, rec.Commodity, rec.ModalPrice, rec.MinPrice, rec.MaxPrice,
		nilIfEmpty(rec.Variety), nilIfEmpty(rec.Grade), nilIfEmpty(rec.MarketDate), rec.RetrievedAt)
	if err != nil {
		slog.Error("PostgresStore SavePriceRecord failed", "error", err,
			"state", rec.State, "district", rec.District, "commodity", rec.Commodity)
		return fmt.Errorf("failed to insert price record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCachedPrice(state, district, commodity string, validity time.Duration) (*models.PriceRecord, error) {
	row := s.db.QueryRow(`
		SELECT state, district, commodity, modal_price, min_price, max_price, variety, grade, market_date, cached_at
		FROM market_prices
		WHERE state = $1 AND district = $2 AND commodity = $3
		ORDER BY cached_at DESC LIMIT 1`,
		state, district, commodity)
	rec, err := scanPriceRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCachedPrice failed", "error", err,
			"state", state, "district", district, "commodity", commodity)
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}
	if time.Since(rec.RetrievedAt) > validity {
		return nil, nil
	}
	return rec, nil
}

func (s *PostgresStore) CleanupPrices(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Exec(`DELETE FROM market_prices WHERE cached_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore CleanupPrices failed", "error", err, "olderThanDays", olderThanDays)
		return 0, fmt.Errorf("failed to clean up prices: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) StoreDistrict(entry models.DistrictEntry) error {
	normalized := entry.NormalizedName
	if normalized == "" {
		normalized = entry.District
	}
	_, err := s.db.Exec(`
		INSERT INTO districts (state, district, normalized_name) VALUES ($1, $2, $3)
		ON CONFLICT (state, district) DO NOTHING`,
		entry.State, entry.District, normalized)
	if err != nil {
		slog.Error("PostgresStore StoreDistrict failed", "error", err, "state", entry.State, "district", entry.District)
		return fmt.Errorf("failed to store district: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDistricts(state string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT district FROM districts WHERE state = $1 ORDER BY district`, state)
	if err != nil {
		slog.Error("PostgresStore GetDistricts query failed", "error", err, "state", state)
		return nil, fmt.Errorf("failed to query districts: %w", err)
	}
	defer rows.Close()

	var districts []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan district row: %w", err)
		}
		districts = append(districts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate district rows: %w", err)
	}
	return districts, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
