package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintInvariantUnderOrderCaseWhitespace(t *testing.T) {
	a := Fingerprint(QueryFilter{
		Ingredients:    []string{"Chicken", "onion "},
		Diet:           []string{"vegetarian"},
		MealType:       []string{"dinner"},
		MaxCookingTime: 30,
	})
	b := Fingerprint(QueryFilter{
		Ingredients:    []string{" onion", "chicken"},
		Diet:           []string{"Vegetarian"},
		MealType:       []string{"DINNER"},
		MaxCookingTime: 30,
	})
	assert.Equal(t, a, b)
}

func TestFingerprintDistinguishesFilters(t *testing.T) {
	base := QueryFilter{Ingredients: []string{"egg"}}
	assert.NotEqual(t, Fingerprint(base), Fingerprint(QueryFilter{Ingredients: []string{"eggs"}}))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(QueryFilter{Ingredients: []string{"egg"}, MaxCookingTime: 20}))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(QueryFilter{Ingredients: []string{"egg"}, Diet: []string{"vegan"}}))

	// a term moving between fields changes the fingerprint
	assert.NotEqual(t,
		Fingerprint(QueryFilter{Ingredients: []string{"thai"}}),
		Fingerprint(QueryFilter{Cuisine: []string{"thai"}}),
	)
}

func TestFingerprintFixedLength(t *testing.T) {
	assert.Len(t, Fingerprint(QueryFilter{}), 64)
	assert.Len(t, Fingerprint(QueryFilter{Ingredients: []string{"a", "b", "c"}}), 64)
}

func TestFingerprintKeepsElementBoundaries(t *testing.T) {
	// a comma inside one element is not two elements
	assert.NotEqual(t,
		Fingerprint(QueryFilter{Ingredients: []string{"a,b"}}),
		Fingerprint(QueryFilter{Ingredients: []string{"a", "b"}}),
	)
}

func TestFingerprintDropsEmptyElements(t *testing.T) {
	a := Fingerprint(QueryFilter{Ingredients: []string{"egg", "", "  "}})
	b := Fingerprint(QueryFilter{Ingredients: []string{"egg"}})
	assert.Equal(t, a, b)
}

func TestCanonicalizeListPreservesOrder(t *testing.T) {
	got := CanonicalizeList([]string{" Garlic", "", "ONION "})
	assert.Equal(t, []string{"garlic", "onion"}, got)
}
