package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	m.Run()
}

func batch(ids ...string) []recipe.CanonicalRecipe {
	out := make([]recipe.CanonicalRecipe, len(ids))
	for i, id := range ids {
		out[i] = recipe.CanonicalRecipe{ID: id}
	}
	return out
}

func TestMemoryStoreFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	stored, err := store.PutRecipes(ctx, "fp", batch("a"))
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = store.PutRecipes(ctx, "fp", batch("b"))
	require.NoError(t, err)
	assert.False(t, stored)

	got, ok, err := store.GetRecipes(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].ID)
}

func TestMemoryStoreMiss(t *testing.T) {
	store := NewMemoryStore(0)
	_, ok, err := store.GetRecipes(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	_, err := store.PutRecipes(ctx, "fp", batch("a"))
	require.NoError(t, err)

	_, ok, err := store.GetRecipes(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok, err = store.GetRecipes(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	// expired entry may be overwritten
	stored, err := store.PutRecipes(ctx, "fp", batch("b"))
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	seen, err := store.SeenIDs(ctx, "u", "fp")
	require.NoError(t, err)
	assert.Empty(t, seen)

	require.NoError(t, store.MarkSeen(ctx, "u", "fp", []string{"1", "2"}))
	require.NoError(t, store.MarkSeen(ctx, "u", "fp", []string{"2", "3"}))

	seen, err = store.SeenIDs(ctx, "u", "fp")
	require.NoError(t, err)
	assert.Len(t, seen, 3)

	// other users and fingerprints stay independent
	seen, err = store.SeenIDs(ctx, "other", "fp")
	require.NoError(t, err)
	assert.Empty(t, seen)
	seen, err = store.SeenIDs(ctx, "u", "fp2")
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestRecipeCacheSingleFlight(t *testing.T) {
	ctx := context.Background()
	cache := NewRecipeCache(NewMemoryStore(0))

	var calls int64
	fetch := func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return batch("1", "2", "3"), nil
	}

	const concurrency = 16
	results := make([][]recipe.CanonicalRecipe, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := cache.GetOrFetch(ctx, "fp", fetch)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for _, got := range results {
		assert.Equal(t, batch("1", "2", "3"), got)
	}

	// a later call hits the store, not the fetcher
	got, err := cache.GetOrFetch(ctx, "fp", fetch)
	require.NoError(t, err)
	assert.Equal(t, batch("1", "2", "3"), got)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestRecipeCacheErrorNotCached(t *testing.T) {
	ctx := context.Background()
	cache := NewRecipeCache(NewMemoryStore(0))

	boom := errors.New("upstream down")
	var calls int64
	failing := func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		atomic.AddInt64(&calls, 1)
		return nil, boom
	}

	_, err := cache.GetOrFetch(ctx, "fp", failing)
	assert.ErrorIs(t, err, boom)

	// the failure left no entry behind; the next call retries
	got, err := cache.GetOrFetch(ctx, "fp", func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		return batch("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestRecipeCacheDistinctFingerprints(t *testing.T) {
	ctx := context.Background()
	cache := NewRecipeCache(NewMemoryStore(0))

	var calls int64
	fetch := func(ids ...string) FetchFunc {
		return func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
			atomic.AddInt64(&calls, 1)
			return batch(ids...), nil
		}
	}

	a, err := cache.GetOrFetch(ctx, "fp-a", fetch("a"))
	require.NoError(t, err)
	b, err := cache.GetOrFetch(ctx, "fp-b", fetch("b"))
	require.NoError(t, err)

	assert.Equal(t, "a", a[0].ID)
	assert.Equal(t, "b", b[0].ID)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}
