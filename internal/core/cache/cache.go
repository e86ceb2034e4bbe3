package cache

import (
	"context"
	"sync"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// FetchFunc produces the recipe batch for a fingerprint on a cache
// miss, typically by calling an upstream provider and normalizing the
// result.
type FetchFunc func(ctx context.Context) ([]recipe.CanonicalRecipe, error)

// RecipeCache fronts a Store with per-fingerprint request coalescing:
// concurrent misses on the same fingerprint share one upstream fetch
// instead of each calling the provider.
type RecipeCache struct {
	store Store

	mu       sync.Mutex
	inFlight map[string]*fetchCall
}

type fetchCall struct {
	done    chan struct{}
	recipes []recipe.CanonicalRecipe
	err     error
}

// NewRecipeCache creates a cache over the given store.
func NewRecipeCache(store Store) *RecipeCache {
	return &RecipeCache{
		store:    store,
		inFlight: make(map[string]*fetchCall),
	}
}

// GetOrFetch returns the cached batch for a fingerprint, fetching and
// storing it on a miss. Fetch failures are returned to every waiting
// caller and leave the cache untouched, so the next request retries.
func (c *RecipeCache) GetOrFetch(ctx context.Context, fingerprint string, fetch FetchFunc) ([]recipe.CanonicalRecipe, error) {
	if recipes, ok, err := c.store.GetRecipes(ctx, fingerprint); err != nil {
		common.LogWarn("cache lookup failed: " + err.Error())
	} else if ok {
		common.LogCacheHit("recipes", fingerprint)
		return recipes, nil
	}

	c.mu.Lock()
	if call, ok := c.inFlight[fingerprint]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.recipes, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	c.inFlight[fingerprint] = call
	c.mu.Unlock()

	common.LogCacheMiss("recipes", fingerprint)
	call.recipes, call.err = c.doFetch(ctx, fingerprint, fetch)

	c.mu.Lock()
	delete(c.inFlight, fingerprint)
	c.mu.Unlock()
	close(call.done)

	return call.recipes, call.err
}

func (c *RecipeCache) doFetch(ctx context.Context, fingerprint string, fetch FetchFunc) ([]recipe.CanonicalRecipe, error) {
	recipes, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := c.store.PutRecipes(ctx, fingerprint, recipes)
	if err != nil {
		common.LogWarn("cache store failed: " + err.Error())
		return recipes, nil
	}
	if !stored {
		// another instance cached first; serve its batch so everyone
		// sees the same ids for this fingerprint
		if cached, ok, err := c.store.GetRecipes(ctx, fingerprint); err == nil && ok {
			return cached, nil
		}
	}
	return recipes, nil
}
