package constants

import (
	"strings"
)

type Category string

const (
	FoodAndDining  Category = "Food & Dining"
	Transportation Category = "Transportation"
	Shopping       Category = "Shopping"
	Entertainment  Category = "Entertainment"
	BillsUtilities Category = "Bills & Utilities"
	Healthcare     Category = "Healthcare"
	Education      Category = "Education"
	Others         Category = "Others"
)

var allCategories = []Category{
	FoodAndDining,
	Transportation,
	Shopping,
	Entertainment,
	BillsUtilities,
	Healthcare,
	Education,
	Others,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form model output onto the fixed taxonomy.
// The second return reports whether the input matched anything; unmatched
// input falls back to Others.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Others, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	for _, kw := range categoryKeywords {
		if strings.Contains(normalized, kw.key) {
			return kw.category, true
		}
	}

	return Others, false
}

// categoryKeywords is scanned in order; earlier entries win when an input
// matches several keywords ("grab food delivery" is Food & Dining).
var categoryKeywords = []struct {
	key      string
	category Category
}{
	{"food", FoodAndDining},
	{"dining", FoodAndDining},
	{"restaurant", FoodAndDining},
	{"coffee", FoodAndDining},
	{"transport", Transportation},
	{"taxi", Transportation},
	{"bus", Transportation},
	{"mrt", Transportation},
	{"grab", Transportation},
	{"retail", Shopping},
	{"store", Shopping},
	{"mall", Shopping},
	{"supermarket", Shopping},
	{"grocery", Shopping},
	{"movie", Entertainment},
	{"cinema", Entertainment},
	{"game", Entertainment},
	{"utilities", BillsUtilities},
	{"bill", BillsUtilities},
	{"medical", Healthcare},
	{"hospital", Healthcare},
	{"clinic", Healthcare},
	{"pharmacy", Healthcare},
	{"school", Education},
	{"course", Education},
	{"book", Education},
}
