package cache

import (
	"context"
	"sync"
	"time"

	"recipe-aggregator/internal/core/recipe"
)

// MemoryStore is the process-local Store implementation. Entries live
// until the optional TTL expires or the process exits; a fresh process
// starts empty.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	recipes map[string]memoryEntry
	history map[string]map[string]struct{}
}

type memoryEntry struct {
	recipes   []recipe.CanonicalRecipe
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of 0 disables
// expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		recipes: make(map[string]memoryEntry),
		history: make(map[string]map[string]struct{}),
	}
}

// GetRecipes returns the cached batch for a fingerprint, if any.
func (s *MemoryStore) GetRecipes(_ context.Context, fingerprint string) ([]recipe.CanonicalRecipe, bool, error) {
	s.mu.RLock()
	entry, ok := s.recipes[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.recipes, fingerprint)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.recipes, true, nil
}

// PutRecipes stores a batch unless one already exists.
func (s *MemoryStore) PutRecipes(_ context.Context, fingerprint string, recipes []recipe.CanonicalRecipe) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.recipes[fingerprint]; ok {
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			return false, nil
		}
	}
	entry := memoryEntry{recipes: recipes}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.recipes[fingerprint] = entry
	return true, nil
}

// SeenIDs returns a copy of the user's shown-id set.
func (s *MemoryStore) SeenIDs(_ context.Context, userID, fingerprint string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.history[historyKey(userID, fingerprint)]))
	for id := range s.history[historyKey(userID, fingerprint)] {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// MarkSeen unions ids into the user's shown set.
func (s *MemoryStore) MarkSeen(_ context.Context, userID, fingerprint string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(userID, fingerprint)
	set, ok := s.history[key]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		s.history[key] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = make(map[string]memoryEntry)
	s.history = make(map[string]map[string]struct{})
	return nil
}
