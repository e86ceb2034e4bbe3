package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/cache"
	recipecore "recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/infrastructure/storage"
	"recipe-aggregator/internal/pkg/common"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	common.Logger = zap.NewNop()
	m.Run()
}

type fakeSearcher struct {
	calls   int64
	recipes []recipecore.CanonicalRecipe
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, filter recipecore.QueryFilter) ([]recipecore.CanonicalRecipe, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.recipes, nil
}

func newTestRouter(structured search.Searcher, store storage.LikedStore) *gin.Engine {
	cacheStore := cache.NewMemoryStore(0)
	svc := search.NewService(cache.NewRecipeCache(cacheStore), cache.NewTracker(cacheStore), structured, nil, nil, nil, nil)
	suggestions := NewHandler(svc)
	saved := NewSavedHandler(store)

	router := gin.New()
	api := router.Group("/api/v1")
	recipes := api.Group("/recipes")
	recipes.POST("/search", suggestions.HandleSearch)
	recipes.POST("/nutrition", suggestions.HandleNutrition)
	recipes.POST("/customise", suggestions.HandleCustomise)
	recipes.POST("/save", saved.HandleSave)
	api.GET("/shopping-list", saved.HandleShoppingList)
	return router
}

func doRequest(router *gin.Engine, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchAcceptsStringAndListFilters(t *testing.T) {
	provider := &fakeSearcher{recipes: []recipecore.CanonicalRecipe{
		{ID: "1", Ingredients: []recipecore.Ingredient{{Name: "egg"}}},
	}}
	router := newTestRouter(provider, storage.NewMemoryLikedStore())

	w := doRequest(router, "POST", "/api/v1/recipes/search", `{"ingredients":"egg, flour","maxCookingTime":"30"}`, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []recipecore.CanonicalRecipe `json:"results"`
		Count   int                          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	// list form of the same filter hits the cached batch
	w = doRequest(router, "POST", "/api/v1/recipes/search", `{"ingredients":["EGG","flour"],"maxCookingTime":30}`, "bob")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
}

func TestSearchRejectsInvalidShapes(t *testing.T) {
	provider := &fakeSearcher{}
	router := newTestRouter(provider, storage.NewMemoryLikedStore())

	for _, body := range []string{
		`{"ingredients":42}`,
		`{"ingredients":{"a":1}}`,
		`{"ingredients":[1,2]}`,
		`{"maxCookingTime":"soon"}`,
		`[1,2,3]`,
		`not json`,
	} {
		w := doRequest(router, "POST", "/api/v1/recipes/search", body, "alice")
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)

		var resp common.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, common.ErrCodeInvalidRequest, resp.Code)
	}

	// the provider is never reached on invalid input
	assert.Equal(t, int64(0), atomic.LoadInt64(&provider.calls))
}

func TestSearchProviderFailure(t *testing.T) {
	provider := &fakeSearcher{err: common.NewError(common.ErrCodeProviderFailure, "spoonacular returned status 500", http.StatusBadGateway, nil)}
	router := newTestRouter(provider, storage.NewMemoryLikedStore())

	w := doRequest(router, "POST", "/api/v1/recipes/search", `{"ingredients":"egg"}`, "alice")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeProviderFailure, resp.Code)
}

func TestParseErrorIncludesRawText(t *testing.T) {
	provider := &fakeSearcher{err: common.NewParseError("generative provider returned malformed JSON", "```maybe json```", nil)}
	router := newTestRouter(provider, storage.NewMemoryLikedStore())

	w := doRequest(router, "POST", "/api/v1/recipes/search", `{"ingredients":"egg"}`, "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeUpstreamParse, resp.Code)
	assert.Equal(t, "```maybe json```", resp.Raw)
}

func TestNutritionFromPayload(t *testing.T) {
	router := newTestRouter(nil, storage.NewMemoryLikedStore())

	body := `{"nutrition":{"nutrients":[{"name":"Calories","amount":316,"unit":"kcal"},{"name":"Protein","amount":12,"unit":"g"}]}}`
	w := doRequest(router, "POST", "/api/v1/recipes/nutrition", body, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nutrition recipecore.NutritionSummary `json:"nutrition"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "316kcal", resp.Nutrition.Calories)
	assert.Equal(t, "12g", resp.Nutrition.Protein)
}

func TestNutritionRequiresInput(t *testing.T) {
	router := newTestRouter(nil, storage.NewMemoryLikedStore())
	w := doRequest(router, "POST", "/api/v1/recipes/nutrition", `{}`, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomiseValidation(t *testing.T) {
	router := newTestRouter(nil, storage.NewMemoryLikedStore())

	w := doRequest(router, "POST", "/api/v1/recipes/customise", `{"recipe":{"title":"Stew"}}`, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "POST", "/api/v1/recipes/customise", `{"instruction":"make it vegan"}`, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndShoppingList(t *testing.T) {
	store := storage.NewMemoryLikedStore()
	router := newTestRouter(nil, store)

	first := `{"id":"r1","title":"Pancakes","extendedIngredients":[
		{"name":"flour","amount":200,"unit":"g","original":"200 g flour"},
		{"name":"milk","amount":300,"unit":"ml","original":"300 ml milk"}]}`
	second := `{"id":"r2","title":"Bread","extendedIngredients":[
		{"name":"Flour","amount":50,"unit":"g","original":"50 g flour"},
		{"name":"salt","amount":0,"unit":"","original":"salt"}]}`

	for _, body := range []string{first, second} {
		w := doRequest(router, "POST", "/api/v1/recipes/save", body, "alice")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, "GET", "/api/v1/shopping-list", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ShoppingList []recipecore.ShoppingItem `json:"shoppingList"`
		RecipeCount  int                       `json:"recipeCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RecipeCount)
	require.Len(t, resp.ShoppingList, 3)
	assert.Equal(t, recipecore.ShoppingItem{Name: "flour", Amount: 250, Unit: "g"}, resp.ShoppingList[0])
	assert.Equal(t, recipecore.ShoppingItem{Name: "milk", Amount: 300, Unit: "ml"}, resp.ShoppingList[1])
	assert.Equal(t, recipecore.ShoppingItem{Name: "salt", Amount: 1, Unit: ""}, resp.ShoppingList[2])

	// another user's list is empty
	w = doRequest(router, "GET", "/api/v1/shopping-list", "", "bob")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.ShoppingList)
}

func TestSaveFallbackChains(t *testing.T) {
	store := storage.NewMemoryLikedStore()
	router := newTestRouter(nil, store)

	body := `{"title":"Mystery Dish","summary":"<p>Simmer the beans gently. Serve with rice.</p>"}`
	w := doRequest(router, "POST", "/api/v1/recipes/save", body, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	likes, err := store.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, likes, 1)

	liked := likes[0]
	assert.NotEmpty(t, liked.RecipeID)
	assert.Equal(t, "Simmer the beans gently. Serve with rice.", liked.Recipe.Instructions)
	assert.Equal(t, []string{"Simmer the beans gently.", "Serve with rice."}, liked.Ingredients.Plain)
	assert.Equal(t, []string{"Simmer the beans gently.", "Serve with rice."}, liked.Steps)
}

func TestSaveRequiresTitle(t *testing.T) {
	router := newTestRouter(nil, storage.NewMemoryLikedStore())
	w := doRequest(router, "POST", "/api/v1/recipes/save", `{"image":"x.jpg"}`, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnonymousUserDefault(t *testing.T) {
	store := storage.NewMemoryLikedStore()
	router := newTestRouter(nil, store)

	w := doRequest(router, "POST", "/api/v1/recipes/save", `{"id":"r1","title":"Toast","ingredients":["bread"]}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	likes, err := store.ListByUser(context.Background(), "anonymous")
	require.NoError(t, err)
	assert.Len(t, likes, 1)
}

func TestFlexListUnmarshal(t *testing.T) {
	var f FlexList
	require.NoError(t, json.Unmarshal([]byte(`"a, b , ,c"`), &f))
	assert.Equal(t, FlexList{"a", "b", "c"}, f)

	f = nil
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &f))
	assert.Equal(t, FlexList{"x", "y"}, f)

	f = nil
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Nil(t, f)

	assert.Error(t, json.Unmarshal([]byte(`7`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &f))
}

func TestFlexIntUnmarshal(t *testing.T) {
	var n FlexInt
	require.NoError(t, json.Unmarshal([]byte(`30`), &n))
	assert.Equal(t, FlexInt(30), n)

	require.NoError(t, json.Unmarshal([]byte(`"45"`), &n))
	assert.Equal(t, FlexInt(45), n)

	require.NoError(t, json.Unmarshal([]byte(`-5`), &n))
	assert.Equal(t, FlexInt(0), n)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &n))
}
