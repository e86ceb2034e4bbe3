package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// SpoonacularClient talks to the structured recipe search provider.
type SpoonacularClient struct {
	client *resty.Client
	cfg    config.SpoonacularConfig
}

// NewSpoonacularClient creates the structured search client.
func NewSpoonacularClient(cfg *config.Config) *SpoonacularClient {
	client := resty.New().
		SetBaseURL(cfg.Providers.Spoonacular.BaseURL).
		SetTimeout(cfg.Providers.Spoonacular.Timeout).
		SetRetryCount(cfg.Providers.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Providers.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Providers.Retry.MaxWaitTime)

	return &SpoonacularClient{
		client: client,
		cfg:    cfg.Providers.Spoonacular,
	}
}

type complexSearchResponse struct {
	Results []recipe.SpoonacularRecipe `json:"results"`
}

// Search runs a complex search with the given filter and returns
// normalized recipes.
func (c *SpoonacularClient) Search(ctx context.Context, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	params := map[string]string{
		"apiKey":               c.cfg.APIKey,
		"number":               strconv.Itoa(c.cfg.Results),
		"addRecipeInformation": "true",
		"addRecipeNutrition":   "true",
		"fillIngredients":      "true",
	}
	if v := joinList(filter.Ingredients); v != "" {
		params["includeIngredients"] = v
	}
	if v := joinList(filter.Intolerances); v != "" {
		params["intolerances"] = v
	}
	if v := joinList(filter.Diet); v != "" {
		params["diet"] = v
	}
	if v := joinList(filter.Cuisine); v != "" {
		params["cuisine"] = v
	}
	if v := joinList(filter.MealType); v != "" {
		params["type"] = v
	}
	if filter.MaxCookingTime > 0 {
		params["maxReadyTime"] = strconv.Itoa(filter.MaxCookingTime)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/recipes/complexSearch")
	common.LogProviderCall("spoonacular", time.Since(start), err, "")
	if err != nil {
		return nil, common.NewError(common.ErrCodeProviderFailure, "structured search request failed", http.StatusBadGateway, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, providerStatusError("spoonacular", resp)
	}

	var payload complexSearchResponse
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewParseError("structured search returned malformed JSON", resp.String(), err)
	}

	results, err := c.fillMissingIngredients(ctx, payload.Results)
	if err != nil {
		// search results are still usable without the bulk detail
		common.LogWarn("ingredient backfill failed", zap.Error(err))
		results = payload.Results
	}

	recipes := make([]recipe.CanonicalRecipe, 0, len(results))
	for i, r := range results {
		recipes = append(recipes, recipe.NormalizeSpoonacular(r, i))
	}
	return recipes, nil
}

// fillMissingIngredients fetches full recipe information for results
// the search endpoint returned without ingredient lines.
func (c *SpoonacularClient) fillMissingIngredients(ctx context.Context, results []recipe.SpoonacularRecipe) ([]recipe.SpoonacularRecipe, error) {
	var missing []string
	for _, r := range results {
		if len(r.ExtendedIngredients) == 0 && r.ID > 0 {
			missing = append(missing, strconv.FormatInt(r.ID, 10))
		}
	}
	if len(missing) == 0 {
		return results, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apiKey": c.cfg.APIKey,
			"ids":    strings.Join(missing, ","),
		}).
		Get("/recipes/informationBulk")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("information bulk returned status %d", resp.StatusCode())
	}

	var detailed []recipe.SpoonacularRecipe
	if err := common.ParseJSONBytes(resp.Body(), &detailed); err != nil {
		return nil, err
	}

	byID := make(map[int64]recipe.SpoonacularRecipe, len(detailed))
	for _, d := range detailed {
		byID[d.ID] = d
	}
	for i, r := range results {
		if d, ok := byID[r.ID]; ok && len(r.ExtendedIngredients) == 0 {
			results[i].ExtendedIngredients = d.ExtendedIngredients
			if r.Instructions == "" {
				results[i].Instructions = d.Instructions
			}
			if len(r.AnalyzedInstructions) == 0 {
				results[i].AnalyzedInstructions = d.AnalyzedInstructions
			}
		}
	}
	return results, nil
}

// AnalyzeNutrition submits a title and ingredient lines to the recipe
// analyzer and returns the raw nutrition payload.
func (c *SpoonacularClient) AnalyzeNutrition(ctx context.Context, title string, ingredientLines []string) ([]byte, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apiKey":           c.cfg.APIKey,
			"includeNutrition": "true",
		}).
		SetBody(map[string]interface{}{
			"title":       title,
			"servings":    1,
			"ingredients": ingredientLines,
		}).
		Post("/recipes/analyze")
	common.LogProviderCall("spoonacular", time.Since(start), err, "")
	if err != nil {
		return nil, common.NewError(common.ErrCodeProviderFailure, "nutrition analysis request failed", http.StatusBadGateway, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, providerStatusError("spoonacular", resp)
	}

	nutrition := gjson.GetBytes(resp.Body(), "nutrition")
	if !nutrition.Exists() {
		return nil, common.NewParseError("nutrition analysis returned no nutrition data", resp.String(), nil)
	}
	return []byte(nutrition.Raw), nil
}

func joinList(items []string) string {
	return strings.Join(recipe.CanonicalizeList(items), ",")
}
