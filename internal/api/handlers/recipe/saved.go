package recipe

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/storage"
	"recipe-aggregator/internal/pkg/common"
)

// SavedHandler persists liked recipes and serves the shopping list
// built from them.
type SavedHandler struct {
	store storage.LikedStore
}

// NewSavedHandler creates the saved-recipe handler.
func NewSavedHandler(store storage.LikedStore) *SavedHandler {
	return &SavedHandler{store: store}
}

// savedRequest is the loose liked-recipe body. Clients send whatever
// shape the suggestion that was liked had, so every field falls back.
type savedRequest struct {
	ID                   string                    `json:"id"`
	Title                string                    `json:"title"`
	Image                string                    `json:"image"`
	Extended             []recipe.Ingredient       `json:"extendedIngredients"`
	Plain                FlexList                  `json:"ingredients"`
	Instructions         string                    `json:"instructions"`
	Summary              string                    `json:"summary"`
	AnalyzedInstructions []recipe.InstructionGroup `json:"analyzedInstructions"`
	Steps                []string                  `json:"steps"`
	ReadyInMinutes       FlexInt                   `json:"readyInMinutes"`
}

// HandleSave stores a liked recipe, filling missing fields from the
// available ones.
func (h *SavedHandler) HandleSave(c *gin.Context) {
	var req savedRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		respondError(c, common.NewValidationError("request body must be a JSON object"))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(c, common.NewValidationError("title is required"))
		return
	}

	liked := buildLikedRecipe(userID(c), req)
	if err := h.store.Save(c.Request.Context(), liked); err != nil {
		common.LogError("failed to save liked recipe",
			zap.String("user_id", liked.UserID),
			zap.String("recipe_id", liked.RecipeID),
			zap.Error(err),
		)
		respondError(c, common.NewError(common.ErrCodeInternalError, "failed to save recipe", http.StatusInternalServerError, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"saved":    true,
		"recipeId": liked.RecipeID,
	})
}

// HandleShoppingList merges the caller's liked recipes into one
// consolidated shopping list.
func (h *SavedHandler) HandleShoppingList(c *gin.Context) {
	user := userID(c)
	likes, err := h.store.ListByUser(c.Request.Context(), user)
	if err != nil {
		common.LogError("failed to list liked recipes",
			zap.String("user_id", user),
			zap.Error(err),
		)
		respondError(c, common.NewError(common.ErrCodeInternalError, "failed to load liked recipes", http.StatusInternalServerError, err))
		return
	}

	saved := make([]recipe.SavedIngredients, 0, len(likes))
	for _, liked := range likes {
		saved = append(saved, liked.Ingredients)
	}

	items := recipe.AggregateIngredients(saved)
	if items == nil {
		items = []recipe.ShoppingItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"shoppingList": items,
		"recipeCount":  len(likes),
	})
}

// buildLikedRecipe applies the fallback chains: instructions from the
// summary or analyzed steps, ingredients from whichever list exists or
// a sentence split of the summary, steps from analyzed instructions or
// a sentence split.
func buildLikedRecipe(user string, req savedRequest) storage.LikedRecipe {
	instructions := req.Instructions
	if instructions == "" {
		if flat := flattenGroups(req.AnalyzedInstructions); flat != "" {
			instructions = flat
		} else {
			instructions = recipe.StripHTML(req.Summary)
		}
	}

	extended := req.Extended
	plain := []string(req.Plain)
	if len(extended) == 0 && len(plain) == 0 {
		plain = recipe.SplitSentences(recipe.StripHTML(req.Summary))
	}

	steps := req.Steps
	if len(steps) == 0 {
		if flat := flattenGroupSteps(req.AnalyzedInstructions); len(flat) > 0 {
			steps = flat
		} else if instructions != "" {
			steps = recipe.SplitSentences(instructions)
		}
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = recipe.ContentID(recipe.Source("saved"), req.Title, 0)
	}

	return storage.LikedRecipe{
		UserID:   user,
		RecipeID: id,
		Title:    req.Title,
		Image:    req.Image,
		Ingredients: recipe.SavedIngredients{
			Extended: extended,
			Plain:    plain,
		},
		Steps: steps,
		Recipe: recipe.CanonicalRecipe{
			ID:                   id,
			Title:                req.Title,
			Ingredients:          extended,
			ReadyInMinutes:       int(req.ReadyInMinutes),
			Instructions:         instructions,
			Summary:              recipe.StripHTML(req.Summary),
			Image:                req.Image,
			AnalyzedInstructions: req.AnalyzedInstructions,
			Steps:                steps,
		},
	}
}

func flattenGroups(groups []recipe.InstructionGroup) string {
	var parts []string
	for _, g := range groups {
		for _, s := range g.Steps {
			if s.Step != "" {
				parts = append(parts, s.Step)
			}
		}
	}
	return strings.Join(parts, " ")
}

func flattenGroupSteps(groups []recipe.InstructionGroup) []string {
	var steps []string
	for _, g := range groups {
		for _, s := range g.Steps {
			if s.Step != "" {
				steps = append(steps, s.Step)
			}
		}
	}
	return steps
}
