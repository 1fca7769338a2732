// Package store provides storage backends for Mandi Saathi.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/KisanLab/MandiSaathi/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// TouchSession creates the session row on first contact or atomically bumps
// the message counter. The single UPSERT statement keeps concurrent writers
// from losing increments.
func (s *SQLiteStore) TouchSession(sessionID, firstMessage string) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_sessions (session_id, first_message, message_count)
		VALUES (?, ?, 1)
		ON CONFLICT(session_id) DO UPDATE SET
			message_count = message_count + 1,
			last_updated = CURRENT_TIMESTAMP`,
		sessionID, firstMessage)
	if err != nil {
		slog.Error("SQLiteStore TouchSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(sessionID string) (*models.Session, error) {
	var sess models.Session
	var firstMessage sql.NullString
	err := s.db.QueryRow(`
		SELECT session_id, created_at, last_updated, first_message, message_count
		FROM chat_sessions WHERE session_id = ?`, sessionID).
		Scan(&sess.ID, &sess.CreatedAt, &sess.LastUpdated, &firstMessage, &sess.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	sess.FirstMessage = firstMessage.String
	return &sess, nil
}

func (s *SQLiteStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`
		SELECT session_id, created_at, last_updated, first_message, message_count
		FROM chat_sessions ORDER BY last_updated DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var firstMessage sql.NullString
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.LastUpdated, &firstMessage, &sess.MessageCount); err != nil {
			slog.Error("SQLiteStore ListSessions scan failed", "error", err)
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

func (s *SQLiteStore) AddChatMessage(sessionID, userMessage, assistantResponse string) error {
	chatData, err := json.Marshal(map[string]string{"user": userMessage, "assistant": assistantResponse})
	if err != nil {
		return fmt.Errorf("failed to marshal chat data: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO chat_messages (session_id, user_message, assistant_response, chat_data)
		VALUES (?, ?, ?, ?)`,
		sessionID, userMessage, assistantResponse, string(chatData))
	if err != nil {
		slog.Error("SQLiteStore AddChatMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to insert chat message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetChatHistory(sessionID string) ([]models.ConversationTurn, error) {
	rows, err := s.db.Query(`
		SELECT user_message, assistant_response, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore GetChatHistory query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.User, &t.Assistant, &t.Timestamp); err != nil {
			slog.Error("SQLiteStore GetChatHistory scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat message rows: %w", err)
	}
	return turns, nil
}

func (s *SQLiteStore) SavePriceRecord(rec models.PriceRecord) error {
	if rec.RetrievedAt.IsZero() {
		rec.RetrievedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO market_prices
		(state, district, commodity, modal_price, min_price, max_price, variety, grade, market_date, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.State, rec.District, rec.Commodity, rec.ModalPrice, rec.MinPrice, rec.MaxPrice,
		nilIfEmpty(rec.Variety), nilIfEmpty(rec.Grade), nilIfEmpty(rec.MarketDate), rec.RetrievedAt)
	if err != nil {
		slog.Error("SQLiteStore SavePriceRecord failed", "error", err,
			"state", rec.State, "district", rec.District, "commodity", rec.Commodity)
		return fmt.Errorf("failed to insert price record: %w", err)
	}
	return nil
}

// GetCachedPrice returns the newest cached record for the triple if it is
// still within the validity window. Expired records are left in place; only
// CleanupPrices removes rows.
func (s *SQLiteStore) GetCachedPrice(state, district, commodity string, validity time.Duration) (*models.PriceRecord, error) {
	row := s.db.QueryRow(`
		SELECT state, district, commodity, modal_price, min_price, max_price, variety, grade, market_date, cached_at
		FROM market_prices
		WHERE state = ? AND district = ? AND commodity = ?
		ORDER BY cached_at DESC LIMIT 1`,
		state, district, commodity)
	rec, err := scanPriceRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCachedPrice failed", "error", err,
			"state", state, "district", district, "commodity", commodity)
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}
	if time.Since(rec.RetrievedAt) > validity {
		slog.Debug("SQLiteStore GetCachedPrice: record expired",
			"state", state, "district", district, "commodity", commodity, "cachedAt", rec.RetrievedAt)
		return nil, nil
	}
	return rec, nil
}

func (s *SQLiteStore) CleanupPrices(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Exec(`DELETE FROM market_prices WHERE cached_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore CleanupPrices failed", "error", err, "olderThanDays", olderThanDays)
		return 0, fmt.Errorf("failed to clean up prices: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore CleanupPrices succeeded", "removed", removed, "olderThanDays", olderThanDays)
	return removed, nil
}

func (s *SQLiteStore) StoreDistrict(entry models.DistrictEntry) error {
	normalized := entry.NormalizedName
	if normalized == "" {
		normalized = entry.District
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO districts (state, district, normalized_name) VALUES (?, ?, ?)`,
		entry.State, entry.District, normalized)
	if err != nil {
		slog.Error("SQLiteStore StoreDistrict failed", "error", err, "state", entry.State, "district", entry.District)
		return fmt.Errorf("failed to store district: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDistricts(state string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT district FROM districts WHERE state = ? ORDER BY district`, state)
	if err != nil {
		slog.Error("SQLiteStore GetDistricts query failed", "error", err, "state", state)
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

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
