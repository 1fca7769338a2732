package store

import (
	"sort"
	"sync"
	"time"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// InMemoryStore is a mutex-guarded in-memory store, used by tests and as a
// fallback when no database DSN is configured.
type InMemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	messages  map[string][]models.ConversationTurn
	prices    []models.PriceRecord
	districts map[string]map[string]string // state -> district -> normalized
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[string]*models.Session),
		messages:  make(map[string][]models.ConversationTurn),
		districts: make(map[string]map[string]string),
	}
}

func (s *InMemoryStore) TouchSession(sessionID, firstMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.MessageCount++
		sess.LastUpdated = now
		return nil
	}
	s.sessions[sessionID] = &models.Session{
		ID:           sessionID,
		CreatedAt:    now,
		LastUpdated:  now,
		FirstMessage: firstMessage,
		MessageCount: 1,
	}
	return nil
}

func (s *InMemoryStore) GetSession(sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *sess
	return &copied, nil
}

func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

func (s *InMemoryStore) AddChatMessage(sessionID, userMessage, assistantResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], models.ConversationTurn{
		User:      userMessage,
		Assistant: assistantResponse,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *InMemoryStore) GetChatHistory(sessionID string) ([]models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.messages[sessionID]...), nil
}

func (s *InMemoryStore) SavePriceRecord(rec models.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.RetrievedAt.IsZero() {
		rec.RetrievedAt = time.Now()
	}
	s.prices = append(s.prices, rec)
	return nil
}

func (s *InMemoryStore) GetCachedPrice(state, district, commodity string, validity time.Duration) (*models.PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *models.PriceRecord
	for i := range s.prices {
		rec := &s.prices[i]
		if rec.State != state || rec.District != district || rec.Commodity != commodity {
			continue
		}
		if newest == nil || rec.RetrievedAt.After(newest.RetrievedAt) {
			newest = rec
		}
	}
	if newest == nil || time.Since(newest.RetrievedAt) > validity {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

func (s *InMemoryStore) CleanupPrices(olderThanDays int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	kept := s.prices[:0]
	var removed int64
	for _, rec := range s.prices {
		if rec.RetrievedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.prices = kept
	return removed, nil
}

func (s *InMemoryStore) StoreDistrict(entry models.DistrictEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.districts[entry.State] == nil {
		s.districts[entry.State] = make(map[string]string)
	}
	if _, exists := s.districts[entry.State][entry.District]; exists {
		return nil
	}
	normalized := entry.NormalizedName
	if normalized == "" {
		normalized = entry.District
	}
	s.districts[entry.State][entry.District] = normalized
	return nil
}

func (s *InMemoryStore) GetDistricts(state string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.districts[state]))
	for d := range s.districts[state] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
