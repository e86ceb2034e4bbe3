package recipe

import "strings"

// AggregateIngredients merges the ingredient lists of many saved recipes
// into one consolidated shopping list. Entries sharing a merge key
// (lower-cased name plus unit) have their amounts summed; different
// units for the same name stay separate line items. Quantity-less
// entries count as one unit-less item, and entries without a usable
// name are dropped. Output keeps the insertion order of first
// occurrence.
func AggregateIngredients(saved []SavedIngredients) []ShoppingItem {
	type entry struct {
		item  ShoppingItem
		index int
	}
	merged := make(map[string]*entry)
	order := 0

	add := func(name string, amount float64, unit string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name) + "|" + unit
		if e, ok := merged[key]; ok {
			e.item.Amount += amount
			return
		}
		merged[key] = &entry{
			item:  ShoppingItem{Name: name, Amount: amount, Unit: unit},
			index: order,
		}
		order++
	}

	for _, s := range saved {
		if len(s.Extended) > 0 {
			for _, ing := range s.Extended {
				name := ing.Name
				if name == "" {
					name = ing.Original
				}
				amount := nonNegative(ing.Amount)
				unit := ing.Unit
				if amount == 0 && unit == "" {
					// staple without a quantity still appears once
					amount = 1
				}
				add(name, amount, unit)
			}
			continue
		}
		for _, name := range s.Plain {
			add(name, 1, "")
		}
	}

	out := make([]ShoppingItem, len(merged))
	for _, e := range merged {
		out[e.index] = e.item
	}
	return out
}
