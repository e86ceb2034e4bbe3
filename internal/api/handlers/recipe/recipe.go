package recipe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/pkg/common"
)

// Handler serves the recipe suggestion endpoints.
type Handler struct {
	service *search.Service
}

// NewHandler creates the suggestion handler.
func NewHandler(service *search.Service) *Handler {
	return &Handler{service: service}
}

// HandleSearch suggests recipes from the structured search provider.
func (h *Handler) HandleSearch(c *gin.Context) {
	h.suggest(c, h.service.Search)
}

// HandleGenerate suggests recipes from the generative provider.
func (h *Handler) HandleGenerate(c *gin.Context) {
	h.suggest(c, h.service.Generate)
}

// HandleDiscover suggests recipes from the second structured provider.
func (h *Handler) HandleDiscover(c *gin.Context) {
	h.suggest(c, h.service.Discover)
}

func (h *Handler) suggest(c *gin.Context, run func(ctx context.Context, userID string, filter recipe.QueryFilter) ([]recipe.CanonicalRecipe, error)) {
	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	user := userID(c)
	results, err := run(c.Request.Context(), user, filter)
	if err != nil {
		common.LogError("suggestion request failed",
			zap.String("user_id", user),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	if results == nil {
		results = []recipe.CanonicalRecipe{}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

type nutritionRequest struct {
	Title       string          `json:"title"`
	Ingredients FlexList        `json:"ingredients"`
	Nutrition   json.RawMessage `json:"nutrition"`
}

// HandleNutrition summarizes the headline nutrients, either from a
// nutrition payload supplied in the request or by analyzing the given
// ingredient lines.
func (h *Handler) HandleNutrition(c *gin.Context) {
	var req nutritionRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		respondError(c, common.NewValidationError("request body must be a JSON object"))
		return
	}

	if len(req.Nutrition) > 0 {
		c.JSON(http.StatusOK, gin.H{
			"nutrition": recipe.SummarizeNutrition(req.Nutrition),
		})
		return
	}

	if len(req.Ingredients) == 0 {
		respondError(c, common.NewValidationError("ingredients or a nutrition payload is required"))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "recipe"
	}
	summary, err := h.service.Nutrition(c.Request.Context(), title, req.Ingredients)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nutrition": summary})
}

type customiseRequest struct {
	Recipe      recipe.CanonicalRecipe `json:"recipe"`
	Instruction string                 `json:"instruction"`
}

// HandleCustomise reworks a recipe according to a free-text request.
func (h *Handler) HandleCustomise(c *gin.Context) {
	var req customiseRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		respondError(c, common.NewValidationError("request body must be a JSON object"))
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		respondError(c, common.NewValidationError("instruction is required"))
		return
	}
	if req.Recipe.Title == "" {
		respondError(c, common.NewValidationError("recipe with a title is required"))
		return
	}

	reworked, err := h.service.Customise(c.Request.Context(), req.Recipe, req.Instruction)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": reworked})
}
