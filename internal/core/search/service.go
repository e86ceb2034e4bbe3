package search

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/image"
	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// Searcher is a structured recipe search provider.
type Searcher interface {
	Search(ctx context.Context, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error)
}

// Generator is the generative recipe provider.
type Generator interface {
	Generate(ctx context.Context, filter recipe.QueryFilter) ([]recipe.GenerativeRecipe, error)
	Customise(ctx context.Context, current recipe.CanonicalRecipe, instruction string) (recipe.GenerativeRecipe, error)
}

// NutritionAnalyzer computes nutrition data from ingredient lines.
type NutritionAnalyzer interface {
	AnalyzeNutrition(ctx context.Context, title string, ingredientLines []string) ([]byte, error)
}

// Service runs the suggestion pipeline: fingerprint the filter, fetch
// through the cache, rank by pantry match, filter against the user's
// show history. Cache and history are only touched when the provider
// call succeeds, so a failed request changes nothing.
type Service struct {
	recipeCache *cache.RecipeCache
	history     *cache.Tracker
	structured  Searcher
	discovery   Searcher
	generative  Generator
	nutrition   NutritionAnalyzer
	enricher    *image.Enricher
}

// NewService wires the pipeline. recipeCache may be nil, in which case
// every request goes straight to the provider.
func NewService(recipeCache *cache.RecipeCache, history *cache.Tracker, structured, discovery Searcher, generative Generator, nutrition NutritionAnalyzer, enricher *image.Enricher) *Service {
	return &Service{
		recipeCache: recipeCache,
		history:     history,
		structured:  structured,
		discovery:   discovery,
		generative:  generative,
		nutrition:   nutrition,
		enricher:    enricher,
	}
}

// Search suggests recipes from the structured search provider, ranked
// and filtered by pantry match.
func (s *Service) Search(ctx context.Context, userID string, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	if s.structured == nil {
		return nil, common.ErrServiceUnavailable
	}
	return s.run(ctx, userID, recipe.SourceSpoonacular, filter, filter.Ingredients, func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		return s.structured.Search(ctx, filter)
	})
}

// Discover suggests recipes from the second structured provider. The
// batch keeps provider order; that provider already applied the filter.
func (s *Service) Discover(ctx context.Context, userID string, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	if s.discovery == nil {
		return nil, common.ErrServiceUnavailable
	}
	return s.run(ctx, userID, recipe.SourceEdamam, filter, nil, func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		return s.discovery.Search(ctx, filter)
	})
}

// Generate suggests recipes from the generative provider, with images
// attached by concurrent best-effort lookups.
func (s *Service) Generate(ctx context.Context, userID string, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error) {
	if s.generative == nil {
		return nil, common.ErrServiceUnavailable
	}
	return s.run(ctx, userID, recipe.SourceGenerative, filter, nil, func(ctx context.Context) ([]recipe.CanonicalRecipe, error) {
		raw, err := s.generative.Generate(ctx, filter)
		if err != nil {
			return nil, err
		}

		titles := make([]string, len(raw))
		for i, r := range raw {
			titles[i] = r.Title
		}
		var images []recipe.ImageMeta
		if s.enricher != nil {
			images = s.enricher.EnrichBatch(ctx, titles)
		} else {
			images = make([]recipe.ImageMeta, len(raw))
		}

		recipes := make([]recipe.CanonicalRecipe, 0, len(raw))
		for i, r := range raw {
			recipes = append(recipes, recipe.NormalizeGenerative(r, images[i], i))
		}
		return recipes, nil
	})
}

// Customise reworks a recipe via the generative provider.
func (s *Service) Customise(ctx context.Context, current recipe.CanonicalRecipe, instruction string) (recipe.CanonicalRecipe, error) {
	if s.generative == nil {
		return recipe.CanonicalRecipe{}, common.ErrServiceUnavailable
	}
	reworked, err := s.generative.Customise(ctx, current, instruction)
	if err != nil {
		return recipe.CanonicalRecipe{}, err
	}

	var img recipe.ImageMeta
	if s.enricher != nil {
		img = s.enricher.EnrichBatch(ctx, []string{reworked.Title})[0]
	}
	out := recipe.NormalizeGenerative(reworked, img, 0)
	// keep the original identity so the client can replace in place
	if current.ID != "" {
		out.ID = current.ID
	}
	return out, nil
}

// Nutrition analyzes ingredient lines and summarizes the headline
// nutrients.
func (s *Service) Nutrition(ctx context.Context, title string, ingredientLines []string) (recipe.NutritionSummary, error) {
	if s.nutrition == nil {
		return recipe.NutritionSummary{}, common.ErrServiceUnavailable
	}
	raw, err := s.nutrition.AnalyzeNutrition(ctx, title, ingredientLines)
	if err != nil {
		return recipe.NutritionSummary{}, err
	}
	return recipe.SummarizeNutrition(raw), nil
}

// run executes the pipeline for one endpoint. A non-empty pantry ranks
// the batch by match count and drops zero-match recipes; only the
// structured search path passes one, the generative and discovery
// batches come back in provider order.
func (s *Service) run(ctx context.Context, userID string, source recipe.Source, filter recipe.QueryFilter, pantry []string, fetch cache.FetchFunc) ([]recipe.CanonicalRecipe, error) {
	// the cache key carries the provider so identical filters sent to
	// different endpoints stay separate batches
	fingerprint := string(source) + ":" + recipe.Fingerprint(filter)

	var batch []recipe.CanonicalRecipe
	var err error
	if s.recipeCache != nil {
		batch, err = s.recipeCache.GetOrFetch(ctx, fingerprint, fetch)
	} else {
		batch, err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	ranked := recipe.RankByPantry(batch, pantry)

	if s.history == nil {
		return ranked, nil
	}
	fresh, err := s.history.FilterUnseen(ctx, userID, fingerprint, ranked)
	if err != nil {
		common.LogError("show history update failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, common.NewError(common.ErrCodeInternalError, "failed to update show history", http.StatusInternalServerError, err)
	}
	return fresh, nil
}
