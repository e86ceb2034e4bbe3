package recipe

import "encoding/json"

// Source identifies the originating provider of a recipe.
type Source string

const (
	SourceSpoonacular Source = "spoonacular"
	SourceGenerative  Source = "openai"
	SourceEdamam      Source = "edamam"
)

// Ingredient is one ingredient line of a canonical recipe.
type Ingredient struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Original string  `json:"original"`
}

// InstructionStep is one numbered step inside an instruction group.
type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// InstructionGroup is an ordered group of numbered steps.
type InstructionGroup struct {
	Name  string            `json:"name"`
	Steps []InstructionStep `json:"steps"`
}

// CanonicalRecipe is the single normalized recipe shape used throughout
// the service regardless of originating provider. Every field has a
// defined default; normalization never produces missing keys.
type CanonicalRecipe struct {
	ID                     string             `json:"id"`
	Title                  string             `json:"title"`
	Ingredients            []Ingredient       `json:"extendedIngredients"`
	ReadyInMinutes         int                `json:"readyInMinutes"`
	Instructions           string             `json:"instructions"`
	Summary                string             `json:"summary"`
	Image                  string             `json:"image"`
	AnalyzedInstructions   []InstructionGroup `json:"analyzedInstructions"`
	Steps                  []string           `json:"steps"`
	Nutrition              json.RawMessage    `json:"nutrition"`
	PhotographerName       string             `json:"photographerName,omitempty"`
	PhotographerProfileURL string             `json:"photographerProfileUrl,omitempty"`
	UnsplashDownloadLink   string             `json:"unsplashDownloadLink,omitempty"`
}

// QueryFilter is a canonical search filter. List fields are treated as
// sets: order, case and surrounding whitespace do not affect identity.
type QueryFilter struct {
	Ingredients    []string `json:"ingredients"`
	Intolerances   []string `json:"intolerances"`
	Diet           []string `json:"diet"`
	Cuisine        []string `json:"cuisine"`
	MealType       []string `json:"mealType"`
	MaxCookingTime int      `json:"maxCookingTime,omitempty"`
}

// ShoppingItem is one consolidated line of a shopping list.
type ShoppingItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// SavedIngredients holds a saved recipe's ingredient data as persisted:
// either a structured list, or plain name strings, or both.
type SavedIngredients struct {
	Extended []Ingredient `json:"extendedIngredients,omitempty"`
	Plain    []string     `json:"ingredients,omitempty"`
}
