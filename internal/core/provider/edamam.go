package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// EdamamClient talks to the second structured recipe search provider.
type EdamamClient struct {
	client *resty.Client
	cfg    config.EdamamConfig
}

// NewEdamamClient creates the second structured search client.
func NewEdamamClient(cfg *config.Config) *EdamamClient {
	client := resty.New().
		SetBaseURL(cfg.Providers.Edamam.BaseURL).
		SetTimeout(cfg.Providers.Edamam.Timeout).
		// the account user header is required on v2 search
		SetHeader("Edamam-Account-User", cfg.Providers.Edamam.AppID).
		SetRetryCount(cfg.Providers.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Providers.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Providers.Retry.MaxWaitTime)

	return &EdamamClient{
		client: client,
		cfg:    cfg.Providers.Edamam,
	}
}

type edamamSearchResponse struct {
	Hits []struct {
		Recipe recipe.EdamamHit `json:"recipe"`
	} `json:"hits"`
}

// Search runs a v2 recipe search with the given filter and returns
// normalized recipes.
func (c *EdamamClient) Search(ctx context.Context, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	params := url.Values{}
	params.Set("type", "public")
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.AppKey)
	params.Set("q", searchQuery(filter))
	for _, v := range recipe.CanonicalizeList(filter.Intolerances) {
		params.Add("health", healthLabel(v))
	}
	for _, v := range recipe.CanonicalizeList(filter.Diet) {
		params.Add("diet", v)
	}
	for _, v := range recipe.CanonicalizeList(filter.Cuisine) {
		params.Add("cuisineType", v)
	}
	for _, v := range recipe.CanonicalizeList(filter.MealType) {
		params.Add("mealType", v)
	}
	if filter.MaxCookingTime > 0 {
		params.Set("time", "1-"+strconv.Itoa(filter.MaxCookingTime))
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params)

	start := time.Now()
	resp, err := req.Get("/api/recipes/v2")
	common.LogProviderCall("edamam", time.Since(start), err, "")
	if err != nil {
		return nil, common.NewError(common.ErrCodeProviderFailure, "discovery search request failed", http.StatusBadGateway, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, providerStatusError("edamam", resp)
	}

	var payload edamamSearchResponse
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewParseError("discovery search returned malformed JSON", resp.String(), err)
	}

	recipes := make([]recipe.CanonicalRecipe, 0, len(payload.Hits))
	for i, hit := range payload.Hits {
		recipes = append(recipes, recipe.NormalizeEdamam(hit.Recipe, i))
	}
	return recipes, nil
}

// searchQuery builds the free-text q parameter. The API rejects empty
// queries, so fall through the filter fields to a generic term.
func searchQuery(filter recipe.QueryFilter) string {
	if terms := recipe.CanonicalizeList(filter.Ingredients); len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	if terms := recipe.CanonicalizeList(filter.Cuisine); len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	if terms := recipe.CanonicalizeList(filter.MealType); len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	if terms := recipe.CanonicalizeList(filter.Diet); len(terms) > 0 {
		return strings.Join(terms, " ")
	}
	return "recipe"
}

// healthLabel maps common intolerance names onto the provider's health
// label vocabulary.
func healthLabel(intolerance string) string {
	switch intolerance {
	case "gluten":
		return "gluten-free"
	case "dairy":
		return "dairy-free"
	case "peanut":
		return "peanut-free"
	case "tree nut", "tree-nut":
		return "tree-nut-free"
	case "shellfish":
		return "shellfish-free"
	case "egg":
		return "egg-free"
	case "soy":
		return "soy-free"
	case "wheat":
		return "wheat-free"
	default:
		return intolerance
	}
}
