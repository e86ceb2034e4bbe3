package cache

import (
	"context"

	"recipe-aggregator/internal/core/recipe"
)

// Store persists fetched recipe batches and per-user show history. A
// single-process deployment uses the in-memory implementation; a
// multi-process deployment backs the same interface with Redis without
// changing calling code.
type Store interface {
	// GetRecipes returns the cached batch for a fingerprint, if any.
	GetRecipes(ctx context.Context, fingerprint string) ([]recipe.CanonicalRecipe, bool, error)
	// PutRecipes stores a batch unless one already exists (first writer
	// wins). Returns whether this call stored the batch.
	PutRecipes(ctx context.Context, fingerprint string, recipes []recipe.CanonicalRecipe) (bool, error)
	// SeenIDs returns the recipe ids already shown to a user for a
	// fingerprint.
	SeenIDs(ctx context.Context, userID, fingerprint string) (map[string]struct{}, error)
	// MarkSeen unions the given ids into the user's shown set.
	MarkSeen(ctx context.Context, userID, fingerprint string, ids []string) error
	// Close releases any backend resources.
	Close() error
}

func historyKey(userID, fingerprint string) string {
	return userID + ":" + fingerprint
}
