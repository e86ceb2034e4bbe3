package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint derives a stable identifier from a search filter. Filters
// that differ only in list ordering, letter case or surrounding
// whitespace map to the same fingerprint; any semantic difference
// produces a different one.
func Fingerprint(f QueryFilter) string {
	canonical := fmt.Sprintf("ingredients=%s|intolerances=%s|diet=%s|cuisine=%s|mealType=%s|maxCookingTime=%d",
		canonicalSet(f.Ingredients),
		canonicalSet(f.Intolerances),
		canonicalSet(f.Diet),
		canonicalSet(f.Cuisine),
		canonicalSet(f.MealType),
		f.MaxCookingTime,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// CanonicalizeList trims, lower-cases and drops empty elements,
// preserving order. Used both for fingerprinting (after a sort) and for
// pantry matching.
func CanonicalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func canonicalSet(items []string) string {
	cleaned := CanonicalizeList(items)
	sort.Strings(cleaned)
	// quoting keeps element boundaries: ["a,b"] must not serialize the
	// same as ["a","b"]
	quoted := make([]string, len(cleaned))
	for i, item := range cleaned {
		quoted[i] = strconv.Quote(item)
	}
	return strings.Join(quoted, ",")
}
