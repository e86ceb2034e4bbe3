package recipe

import (
	"sort"
	"strings"
)

// MatchCount counts how many of a recipe's ingredient lines contain any
// pantry term. Matching is substring containment on the lower-cased
// name or original text, so "2 cloves garlic, minced" matches the
// pantry term "garlic".
func MatchCount(ingredients []Ingredient, pantry []string) int {
	if len(ingredients) == 0 || len(pantry) == 0 {
		return 0
	}
	terms := CanonicalizeList(pantry)
	count := 0
	for _, ing := range ingredients {
		name := strings.ToLower(ing.Name)
		if name == "" {
			name = strings.ToLower(ing.Original)
		}
		for _, term := range terms {
			if strings.Contains(name, term) {
				count++
				break
			}
		}
	}
	return count
}

// RankByPantry orders recipes by descending pantry match count. With a
// non-empty pantry, zero-match recipes are excluded and ties keep the
// provider's relative order. With an empty pantry the input is returned
// untouched.
func RankByPantry(recipes []CanonicalRecipe, pantry []string) []CanonicalRecipe {
	if len(CanonicalizeList(pantry)) == 0 {
		return recipes
	}

	type scored struct {
		recipe CanonicalRecipe
		count  int
	}
	matched := make([]scored, 0, len(recipes))
	for _, r := range recipes {
		if c := MatchCount(r.Ingredients, pantry); c > 0 {
			matched = append(matched, scored{recipe: r, count: c})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].count > matched[j].count
	})

	out := make([]CanonicalRecipe, 0, len(matched))
	for _, s := range matched {
		out = append(out, s.recipe)
	}
	return out
}
