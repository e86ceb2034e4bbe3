package storage

import (
	"context"
	"sync"

	"recipe-aggregator/internal/core/recipe"
)

// LikedRecipe is a recipe a user has saved, as persisted.
type LikedRecipe struct {
	UserID      string                  `json:"userId"`
	RecipeID    string                  `json:"recipeId"`
	Title       string                  `json:"title"`
	Image       string                  `json:"image"`
	Ingredients recipe.SavedIngredients `json:"ingredients"`
	Steps       []string                `json:"steps"`
	Recipe      recipe.CanonicalRecipe  `json:"recipe"`
}

// LikedStore persists liked recipes for the shopping list.
type LikedStore interface {
	Save(ctx context.Context, liked LikedRecipe) error
	ListByUser(ctx context.Context, userID string) ([]LikedRecipe, error)
	Close() error
}

// MemoryLikedStore is the in-memory LikedStore used when no database
// is configured, and as the test double.
type MemoryLikedStore struct {
	mu    sync.RWMutex
	byKey map[string]LikedRecipe
	order []string
}

// NewMemoryLikedStore creates an empty in-memory store.
func NewMemoryLikedStore() *MemoryLikedStore {
	return &MemoryLikedStore{
		byKey: make(map[string]LikedRecipe),
	}
}

// Save stores or replaces a liked recipe.
func (s *MemoryLikedStore) Save(_ context.Context, liked LikedRecipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := liked.UserID + ":" + liked.RecipeID
	if _, ok := s.byKey[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byKey[key] = liked
	return nil
}

// ListByUser returns the user's liked recipes in save order.
func (s *MemoryLikedStore) ListByUser(_ context.Context, userID string) ([]LikedRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LikedRecipe
	for _, key := range s.order {
		if liked, ok := s.byKey[key]; ok && liked.UserID == userID {
			out = append(out, liked)
		}
	}
	return out, nil
}

// Close clears the store.
func (s *MemoryLikedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]LikedRecipe)
	s.order = nil
	return nil
}
