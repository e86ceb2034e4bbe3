package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// GenerativeClient talks to an OpenAI-compatible chat completions API
// and turns its text output into recipe structures.
type GenerativeClient struct {
	client *resty.Client
	cfg    config.GenerativeConfig
}

// NewGenerativeClient creates the generative recipe client.
func NewGenerativeClient(cfg *config.Config) *GenerativeClient {
	client := resty.New().
		SetBaseURL(cfg.Providers.Generative.BaseURL).
		SetTimeout(cfg.Providers.Generative.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Providers.Generative.APIKey)).
		SetRetryCount(cfg.Providers.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Providers.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Providers.Retry.MaxWaitTime)

	return &GenerativeClient{
		client: client,
		cfg:    cfg.Providers.Generative,
	}
}

// Generate asks the model for recipes matching the filter. The raw
// shapes are returned unnormalized so the caller can attach images
// before normalization.
func (c *GenerativeClient) Generate(ctx context.Context, filter recipe.QueryFilter) ([]recipe.GenerativeRecipe, error) {
	content, err := c.complete(ctx, buildGeneratePrompt(filter, c.cfg.Recipes))
	if err != nil {
		return nil, err
	}

	cleaned := common.RepairLooseJSON(common.StripJSONFences(content))
	if !gjson.Valid(cleaned) {
		return nil, common.NewParseError("generative provider returned malformed JSON", content, nil)
	}

	var recipes []recipe.GenerativeRecipe
	if err := common.ParseJSON(cleaned, &recipes); err != nil {
		// tolerate a single object where an array was asked for
		var one recipe.GenerativeRecipe
		if err2 := common.ParseJSON(cleaned, &one); err2 != nil || one.Title == "" {
			return nil, common.NewParseError("generative provider returned an unexpected JSON shape", content, err)
		}
		recipes = []recipe.GenerativeRecipe{one}
	}
	if len(recipes) == 0 {
		return nil, common.NewParseError("generative provider returned no recipes", content, nil)
	}
	return recipes, nil
}

// Customise asks the model to rework an existing recipe according to a
// free-text instruction and returns the reworked recipe.
func (c *GenerativeClient) Customise(ctx context.Context, current recipe.CanonicalRecipe, instruction string) (recipe.GenerativeRecipe, error) {
	currentJSON, err := common.ToJSON(current)
	if err != nil {
		return recipe.GenerativeRecipe{}, common.NewError(common.ErrCodeInternalError, "failed to encode recipe", http.StatusInternalServerError, err)
	}

	content, err := c.complete(ctx, buildCustomisePrompt(currentJSON, instruction))
	if err != nil {
		return recipe.GenerativeRecipe{}, err
	}

	cleaned := common.RepairLooseJSON(common.StripJSONFences(content))
	var reworked recipe.GenerativeRecipe
	if err := common.ParseJSON(cleaned, &reworked); err != nil || reworked.Title == "" {
		return recipe.GenerativeRecipe{}, common.NewParseError("generative provider returned a malformed recipe", content, err)
	}
	return reworked, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *GenerativeClient) complete(ctx context.Context, prompt string) (string, error) {
	req := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": 0.7,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	common.LogProviderCall("generative", time.Since(start), err, "")
	if err != nil {
		return "", common.NewError(common.ErrCodeProviderFailure, "generative request failed", http.StatusBadGateway, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", providerStatusError("generative", resp)
	}

	var payload chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return "", common.NewParseError("generative provider returned a malformed envelope", resp.String(), err)
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return "", common.NewParseError("generative provider returned no content", resp.String(), nil)
	}
	return payload.Choices[0].Message.Content, nil
}

func buildGeneratePrompt(filter recipe.QueryFilter, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d recipes", count)
	if terms := recipe.CanonicalizeList(filter.Ingredients); len(terms) > 0 {
		fmt.Fprintf(&b, " using these ingredients: %s", strings.Join(terms, ", "))
	}
	if terms := recipe.CanonicalizeList(filter.Cuisine); len(terms) > 0 {
		fmt.Fprintf(&b, ". Cuisine: %s", strings.Join(terms, ", "))
	}
	if terms := recipe.CanonicalizeList(filter.MealType); len(terms) > 0 {
		fmt.Fprintf(&b, ". Meal type: %s", strings.Join(terms, ", "))
	}
	if terms := recipe.CanonicalizeList(filter.Diet); len(terms) > 0 {
		fmt.Fprintf(&b, ". Diet: %s", strings.Join(terms, ", "))
	}
	if terms := recipe.CanonicalizeList(filter.Intolerances); len(terms) > 0 {
		fmt.Fprintf(&b, ". Strictly avoid: %s", strings.Join(terms, ", "))
	}
	if filter.MaxCookingTime > 0 {
		fmt.Fprintf(&b, ". Each recipe must take at most %d minutes", filter.MaxCookingTime)
	}
	b.WriteString(`. Respond with ONLY a JSON array, no prose and no markdown fences. Each element: {"title": string, "ingredients": [{"name": string, "amount": number, "unit": string}], "readyInMinutes": number, "instructions": string, "summary": string, "steps": [string]}. Amounts must be decimal numbers, never fractions like 1/2.`)
	return b.String()
}

func buildCustomisePrompt(currentJSON, instruction string) string {
	return fmt.Sprintf(`Here is a recipe as JSON: %s

Rework it according to this request: %s

Respond with ONLY the reworked recipe as a single JSON object, no prose and no markdown fences, shaped as {"title": string, "ingredients": [{"name": string, "amount": number, "unit": string}], "readyInMinutes": number, "instructions": string, "summary": string, "steps": [string]}. Amounts must be decimal numbers, never fractions like 1/2.`, currentJSON, instruction)
}
