package cache

import (
	"context"
	"sync"

	"recipe-aggregator/internal/core/recipe"
)

// Tracker records which cached recipes each user has already been
// shown and rotates through a batch so repeat searches surface fresh
// results before repeating.
type Tracker struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// FilterUnseen partitions a ranked batch into recipes the user has not
// yet been shown, preserving order. When every recipe has been shown,
// the full batch is returned so the rotation starts over. The returned
// recipes are recorded as shown before this call returns.
func (t *Tracker) FilterUnseen(ctx context.Context, userID, fingerprint string, recipes []recipe.CanonicalRecipe) ([]recipe.CanonicalRecipe, error) {
	if len(recipes) == 0 {
		return recipes, nil
	}

	// serialize read-filter-write per (user, fingerprint) so two
	// concurrent searches do not both see an empty history
	lock := t.keyLock(historyKey(userID, fingerprint))
	lock.Lock()
	defer lock.Unlock()

	seen, err := t.store.SeenIDs(ctx, userID, fingerprint)
	if err != nil {
		return nil, err
	}

	unseen := make([]recipe.CanonicalRecipe, 0, len(recipes))
	for _, r := range recipes {
		if _, ok := seen[r.ID]; !ok {
			unseen = append(unseen, r)
		}
	}

	result := unseen
	if len(result) == 0 {
		result = recipes
	}

	ids := make([]string, len(result))
	for i, r := range result {
		ids[i] = r.ID
	}
	if err := t.store.MarkSeen(ctx, userID, fingerprint, ids); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Tracker) keyLock(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[key] = lock
	}
	return lock
}
