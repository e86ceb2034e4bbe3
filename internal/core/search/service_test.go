package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	m.Run()
}

type fakeSearcher struct {
	calls   int64
	recipes []recipe.CanonicalRecipe
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.recipes, nil
}

type fakeGenerator struct {
	calls   int64
	recipes []recipe.GenerativeRecipe
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, filter recipe.QueryFilter) ([]recipe.GenerativeRecipe, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.recipes, nil
}

func (f *fakeGenerator) Customise(ctx context.Context, current recipe.CanonicalRecipe, instruction string) (recipe.GenerativeRecipe, error) {
	if f.err != nil {
		return recipe.GenerativeRecipe{}, f.err
	}
	return recipe.GenerativeRecipe{Title: current.Title + " (custom)"}, nil
}

func recipesWithIngredients(byID map[string][]string) []recipe.CanonicalRecipe {
	// map iteration order is random; keep an explicit order instead
	var out []recipe.CanonicalRecipe
	for _, id := range []string{"a", "b", "c", "1", "2", "3"} {
		names, ok := byID[id]
		if !ok {
			continue
		}
		r := recipe.CanonicalRecipe{ID: id}
		for _, n := range names {
			r.Ingredients = append(r.Ingredients, recipe.Ingredient{Name: n})
		}
		out = append(out, r)
	}
	return out
}

func newTestService(structured Searcher, generative Generator) *Service {
	store := cache.NewMemoryStore(0)
	return NewService(cache.NewRecipeCache(store), cache.NewTracker(store), structured, nil, generative, nil, nil)
}

func TestSearchCachesIdenticalFilters(t *testing.T) {
	ctx := context.Background()
	provider := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{
		"1": {"egg"}, "2": {"egg", "flour"}, "3": {"egg", "milk"},
	})}
	svc := newTestService(provider, nil)

	first, err := svc.Search(ctx, "u", recipe.QueryFilter{Ingredients: []string{"egg"}})
	require.NoError(t, err)
	assert.Len(t, first, 3)

	// same filter, different list spelling: served from cache
	second, err := svc.Search(ctx, "u2", recipe.QueryFilter{Ingredients: []string{" EGG "}})
	require.NoError(t, err)
	assert.Len(t, second, 3)

	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
}

func TestSearchConcurrentIdenticalRequestsShareOneFetch(t *testing.T) {
	ctx := context.Background()
	provider := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{
		"1": {"egg"}, "2": {"egg"}, "3": {"egg"},
	})}
	svc := newTestService(provider, nil)

	const concurrency = 10
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Search(ctx, "u", recipe.QueryFilter{Ingredients: []string{"egg"}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
}

func TestSearchRanksByPantry(t *testing.T) {
	ctx := context.Background()
	provider := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{
		"a": {"onion soup"},
		"b": {"chicken thigh", "red onion"},
		"c": {"tofu"},
	})}
	svc := newTestService(provider, nil)

	got, err := svc.Search(ctx, "u", recipe.QueryFilter{Ingredients: []string{"chicken", "onion"}})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestSearchHistoryRotation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{
		"1": nil, "2": nil, "3": nil,
	})}
	svc := newTestService(provider, nil)
	filter := recipe.QueryFilter{Cuisine: []string{"thai"}}

	first, err := svc.Search(ctx, "u", filter)
	require.NoError(t, err)
	assert.Len(t, first, 3)

	// everything was shown; the next search surfaces the batch again
	second, err := svc.Search(ctx, "u", filter)
	require.NoError(t, err)
	assert.Len(t, second, 3)

	// a different user starts with a clean history but the same cache
	other, err := svc.Search(ctx, "v", filter)
	require.NoError(t, err)
	assert.Len(t, other, 3)
	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
}

func TestProviderFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	boom := common.NewParseError("generative provider returned malformed JSON", "not json {", nil)
	generator := &fakeGenerator{err: boom}
	svc := newTestService(nil, generator)
	filter := recipe.QueryFilter{Ingredients: []string{"egg"}}

	_, err := svc.Generate(ctx, "u", filter)
	require.Error(t, err)

	var custom *common.CustomError
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, common.ErrCodeUpstreamParse, custom.Code)
	assert.Equal(t, "not json {", custom.Raw)

	// recovery: a now-working provider is called again, proving the
	// failure cached nothing
	generator.err = nil
	generator.recipes = []recipe.GenerativeRecipe{{Title: "Omelette"}}
	got, err := svc.Generate(ctx, "u", filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Omelette", got[0].Title)
	assert.Equal(t, int64(2), atomic.LoadInt64(&generator.calls))
}

func TestGenerateNormalizesOutput(t *testing.T) {
	ctx := context.Background()
	generator := &fakeGenerator{recipes: []recipe.GenerativeRecipe{
		{Title: "Garlic Pasta", Ingredients: []recipe.GenerativeIngredient{{Name: "garlic", Amount: 3, Unit: "cloves"}}},
		{Title: "Fried Rice"},
	}}
	svc := newTestService(nil, generator)

	got, err := svc.Generate(ctx, "u", recipe.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Contains(t, got[0].ID, "openai_garlic_pasta_")
	assert.Equal(t, "3 cloves garlic", got[0].Ingredients[0].Original)
	assert.NotNil(t, got[1].Ingredients)
	assert.NotNil(t, got[1].Steps)
}

func TestGenerateKeepsFullBatchWithPantryFilter(t *testing.T) {
	ctx := context.Background()
	// model output without ingredient lines must not be filtered away
	generator := &fakeGenerator{recipes: []recipe.GenerativeRecipe{
		{Title: "Omelette"},
		{Title: "Shakshuka"},
	}}
	svc := newTestService(nil, generator)

	got, err := svc.Generate(ctx, "u", recipe.QueryFilter{Ingredients: []string{"egg"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDiscoverKeepsFullBatchWithPantryFilter(t *testing.T) {
	ctx := context.Background()
	discovery := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{
		"a": {"tofu"}, "b": nil,
	})}
	store := cache.NewMemoryStore(0)
	svc := NewService(cache.NewRecipeCache(store), cache.NewTracker(store), nil, discovery, nil, nil, nil)

	got, err := svc.Discover(ctx, "u", recipe.QueryFilter{Ingredients: []string{"egg"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchAndDiscoverKeepSeparateBatches(t *testing.T) {
	ctx := context.Background()
	structured := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{"a": nil})}
	discovery := &fakeSearcher{recipes: recipesWithIngredients(map[string][]string{"b": nil})}
	store := cache.NewMemoryStore(0)
	svc := NewService(cache.NewRecipeCache(store), cache.NewTracker(store), structured, discovery, nil, nil, nil)
	filter := recipe.QueryFilter{Cuisine: []string{"greek"}}

	fromSearch, err := svc.Search(ctx, "u", filter)
	require.NoError(t, err)
	fromDiscover, err := svc.Discover(ctx, "u", filter)
	require.NoError(t, err)

	assert.Equal(t, "a", fromSearch[0].ID)
	assert.Equal(t, "b", fromDiscover[0].ID)
	assert.Equal(t, int64(1), atomic.LoadInt64(&structured.calls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&discovery.calls))
}

func TestCustomiseKeepsIdentity(t *testing.T) {
	svc := newTestService(nil, &fakeGenerator{})

	got, err := svc.Customise(context.Background(), recipe.CanonicalRecipe{ID: "42", Title: "Stew"}, "make it vegan")
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "Stew (custom)", got.Title)
}

func TestUnconfiguredProviders(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.Search(context.Background(), "u", recipe.QueryFilter{})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	_, err = svc.Discover(context.Background(), "u", recipe.QueryFilter{})
	assert.Error(t, err)
	_, err = svc.Generate(context.Background(), "u", recipe.QueryFilter{})
	assert.Error(t, err)
	_, err = svc.Nutrition(context.Background(), "x", []string{"egg"})
	assert.Error(t, err)
}
