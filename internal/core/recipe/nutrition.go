package recipe

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// NutritionSummary is the headline nutrient view shown alongside a
// recipe.
type NutritionSummary struct {
	Calories      string `json:"calories"`
	Protein       string `json:"protein"`
	Fat           string `json:"fat"`
	Carbohydrates string `json:"carbohydrates"`
}

// SummarizeNutrition extracts the four headline nutrients from any of
// the nutrition payload shapes the providers emit. Unknown or invalid
// payloads yield an empty summary, never an error.
func SummarizeNutrition(raw []byte) NutritionSummary {
	var s NutritionSummary
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return s
	}
	doc := gjson.ParseBytes(raw)

	// structured search shape: {"nutrients": [{"name", "amount", "unit"}]}
	if nutrients := doc.Get("nutrients"); nutrients.IsArray() {
		for _, n := range nutrients.Array() {
			val := fmt.Sprintf("%g%s", n.Get("amount").Float(), n.Get("unit").String())
			switch n.Get("name").String() {
			case "Calories":
				s.Calories = val
			case "Protein":
				s.Protein = val
			case "Fat":
				s.Fat = val
			case "Carbohydrates":
				s.Carbohydrates = val
			}
		}
		return s
	}

	// widget shape: {"calories": "316", "carbs": "49g", ...}
	if doc.Get("calories").Exists() {
		s.Calories = doc.Get("calories").String()
		s.Protein = doc.Get("protein").String()
		s.Fat = doc.Get("fat").String()
		s.Carbohydrates = doc.Get("carbs").String()
		return s
	}

	// nutrient-code shape: {"ENERC_KCAL": {"quantity", "unit"}, ...}
	coded := func(key string) string {
		n := doc.Get(key)
		if !n.Exists() {
			return ""
		}
		return fmt.Sprintf("%.0f%s", n.Get("quantity").Float(), n.Get("unit").String())
	}
	s.Calories = coded("ENERC_KCAL")
	s.Protein = coded("PROCNT")
	s.Fat = coded("FAT")
	s.Carbohydrates = coded("CHOCDF")
	return s
}
