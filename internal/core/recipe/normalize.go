package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Raw provider payload shapes. Every field is optional; anything absent
// normalizes to a defined default, never an error.

// SpoonacularRecipe mirrors the structured search provider's payload.
type SpoonacularRecipe struct {
	ID                   int64                   `json:"id"`
	Title                string                  `json:"title"`
	ExtendedIngredients  []SpoonacularIngredient `json:"extendedIngredients"`
	ReadyInMinutes       int                     `json:"readyInMinutes"`
	AnalyzedInstructions []InstructionGroup      `json:"analyzedInstructions"`
	Instructions         string                  `json:"instructions"`
	Summary              string                  `json:"summary"`
	Image                string                  `json:"image"`
	Nutrition            json.RawMessage         `json:"nutrition"`
}

// SpoonacularIngredient is one structured ingredient line.
type SpoonacularIngredient struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Original string  `json:"original"`
}

// GenerativeRecipe mirrors one element of the generative provider's JSON
// array output.
type GenerativeRecipe struct {
	Title          string                 `json:"title"`
	Ingredients    []GenerativeIngredient `json:"ingredients"`
	ReadyInMinutes int                    `json:"readyInMinutes"`
	Instructions   string                 `json:"instructions"`
	Summary        string                 `json:"summary"`
	ImageURL       string                 `json:"image_url"`
	Steps          []string               `json:"steps"`
}

// GenerativeIngredient tolerates the loose typing of model output: amount
// may arrive as a number or a numeric string.
type GenerativeIngredient struct {
	Name   string    `json:"name"`
	Amount FlexFloat `json:"amount"`
	Unit   string    `json:"unit"`
}

// FlexFloat decodes a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// EdamamHit mirrors one recipe object of the second structured provider.
type EdamamHit struct {
	URI             string             `json:"uri"`
	Label           string             `json:"label"`
	Image           string             `json:"image"`
	Source          string             `json:"source"`
	Ingredients     []EdamamIngredient `json:"ingredients"`
	TotalTime       float64            `json:"totalTime"`
	IngredientLines []string           `json:"ingredientLines"`
	TotalNutrients  json.RawMessage    `json:"totalNutrients"`
}

// EdamamIngredient is one ingredient entry of an Edamam recipe.
type EdamamIngredient struct {
	Food   string  `json:"food"`
	Weight float64 `json:"weight"`
	Text   string  `json:"text"`
}

// ImageMeta carries an image URL and its attribution.
type ImageMeta struct {
	URL                    string
	DownloadLocation       string
	PhotographerName       string
	PhotographerProfileURL string
}

var htmlStripper = bluemonday.StrictPolicy()

// StripHTML removes markup and collapses runs of whitespace.
func StripHTML(s string) string {
	return strings.Join(strings.Fields(htmlStripper.Sanitize(s)), " ")
}

// ContentID derives a stable recipe id from title, provider and arrival
// order, so synthesized ids survive process restarts.
func ContentID(source Source, title string, ord int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", source, title, ord)))
	return fmt.Sprintf("%s_%s_%s", source, slugify(title), hex.EncodeToString(sum[:])[:8])
}

func slugify(title string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(title)))
	if len(fields) == 0 {
		return "untitled"
	}
	return strings.Join(fields, "_")
}

// NormalizeSpoonacular converts a structured-search payload into the
// canonical shape.
func NormalizeSpoonacular(r SpoonacularRecipe, ord int) CanonicalRecipe {
	id := ""
	if r.ID > 0 {
		id = strconv.FormatInt(r.ID, 10)
	} else {
		id = ContentID(SourceSpoonacular, r.Title, ord)
	}

	ingredients := make([]Ingredient, 0, len(r.ExtendedIngredients))
	for _, ing := range r.ExtendedIngredients {
		original := ing.Original
		if original == "" {
			original = renderIngredient(ing.Amount, ing.Unit, ing.Name)
		}
		ingredients = append(ingredients, Ingredient{
			Name:     ing.Name,
			Amount:   nonNegative(ing.Amount),
			Unit:     ing.Unit,
			Original: original,
		})
	}

	summary := StripHTML(r.Summary)
	groups := normalizeGroups(r.AnalyzedInstructions)
	steps := deriveSteps(groups, r.Instructions, summary)

	return CanonicalRecipe{
		ID:                   id,
		Title:                r.Title,
		Ingredients:          ingredients,
		ReadyInMinutes:       maxInt(r.ReadyInMinutes, 0),
		Instructions:         r.Instructions,
		Summary:              summary,
		Image:                r.Image,
		AnalyzedInstructions: groups,
		Steps:                steps,
		Nutrition:            r.Nutrition,
	}
}

// NormalizeGenerative converts one generative-provider recipe into the
// canonical shape. The image comes from a separate lookup and may be
// empty when that lookup timed out.
func NormalizeGenerative(r GenerativeRecipe, img ImageMeta, ord int) CanonicalRecipe {
	ingredients := make([]Ingredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		amount := nonNegative(float64(ing.Amount))
		ingredients = append(ingredients, Ingredient{
			Name:     ing.Name,
			Amount:   amount,
			Unit:     ing.Unit,
			Original: renderIngredient(amount, ing.Unit, ing.Name),
		})
	}

	image := img.URL
	if image == "" {
		image = r.ImageURL
	}

	summary := StripHTML(r.Summary)
	steps := r.Steps
	if len(steps) == 0 {
		steps = deriveSteps(nil, r.Instructions, summary)
	}
	if steps == nil {
		steps = []string{}
	}

	return CanonicalRecipe{
		ID:                     ContentID(SourceGenerative, r.Title, ord),
		Title:                  r.Title,
		Ingredients:            ingredients,
		ReadyInMinutes:         maxInt(r.ReadyInMinutes, 0),
		Instructions:           r.Instructions,
		Summary:                summary,
		Image:                  image,
		AnalyzedInstructions:   []InstructionGroup{},
		Steps:                  steps,
		Nutrition:              nil,
		PhotographerName:       img.PhotographerName,
		PhotographerProfileURL: img.PhotographerProfileURL,
		UnsplashDownloadLink:   img.DownloadLocation,
	}
}

// NormalizeEdamam converts one hit of the second structured provider.
// Edamam supplies no instructions; the field stays empty and the
// ingredient lines double as display steps.
func NormalizeEdamam(h EdamamHit, ord int) CanonicalRecipe {
	id := h.URI
	if idx := strings.Index(h.URI, "#recipe_"); idx != -1 {
		id = h.URI[idx+len("#recipe_"):]
	}
	if id == "" {
		id = ContentID(SourceEdamam, h.Label, ord)
	}

	ingredients := make([]Ingredient, 0, len(h.Ingredients))
	for _, ing := range h.Ingredients {
		ingredients = append(ingredients, Ingredient{
			Name:     ing.Food,
			Amount:   nonNegative(ing.Weight),
			Unit:     "g",
			Original: ing.Text,
		})
	}

	steps := h.IngredientLines
	if steps == nil {
		steps = []string{}
	}

	return CanonicalRecipe{
		ID:                   id,
		Title:                h.Label,
		Ingredients:          ingredients,
		ReadyInMinutes:       maxInt(int(h.TotalTime), 0),
		Instructions:         "",
		Summary:              StripHTML(h.Source),
		Image:                h.Image,
		AnalyzedInstructions: []InstructionGroup{},
		Steps:                steps,
		Nutrition:            h.TotalNutrients,
	}
}

func normalizeGroups(groups []InstructionGroup) []InstructionGroup {
	out := make([]InstructionGroup, 0, len(groups))
	for _, g := range groups {
		steps := make([]InstructionStep, 0, len(g.Steps))
		for _, s := range g.Steps {
			steps = append(steps, InstructionStep{Number: maxInt(s.Number, 0), Step: s.Step})
		}
		out = append(out, InstructionGroup{Name: g.Name, Steps: steps})
	}
	return out
}

// deriveSteps prefers flattened analyzed instructions, then a sentence
// split of the flat instruction text, then the stripped summary.
func deriveSteps(groups []InstructionGroup, instructions, summary string) []string {
	steps := make([]string, 0)
	for _, g := range groups {
		for _, s := range g.Steps {
			if s.Step != "" {
				steps = append(steps, fmt.Sprintf("Step %d: %s", s.Number, s.Step))
			}
		}
	}
	if len(steps) > 0 {
		return steps
	}
	if instructions != "" {
		return SplitSentences(instructions)
	}
	if summary != "" {
		return SplitSentences(summary)
	}
	return steps
}

// SplitSentences breaks flat text on sentence boundaries, discarding
// fragments too short to be a meaningful step.
func SplitSentences(text string) []string {
	out := make([]string, 0)
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if len(s) > 5 {
			out = append(out, s)
		}
	}
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			flush()
		}
	}
	flush()
	return out
}

func renderIngredient(amount float64, unit, name string) string {
	parts := make([]string, 0, 3)
	if amount != 0 {
		parts = append(parts, strconv.FormatFloat(amount, 'f', -1, 64))
	}
	if unit != "" {
		parts = append(parts, unit)
	}
	if name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func maxInt(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
