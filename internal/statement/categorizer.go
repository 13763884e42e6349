// Package statement implements the bank-statement ingestion pipeline:
// parsing uploaded .xlsx exports, classifying transactions by narration,
// and folding them into monthly and cumulative financial summaries.
package statement

import "strings"

// CategoryMisc is the catch-all label used when no keyword matches.
const CategoryMisc = "misc"

type categoryRule struct {
	label    string
	keywords []string
}

// categoryRules maps narration keywords to category labels. Order matters:
// the first label with any matching keyword wins, so broad rules like
// peer_payment sit near the end.
var categoryRules = []categoryRule{
	{"salary", []string{"salary", "credited by infosys", "neft infosys"}},
	{"rent", []string{"rent", "landlord"}},
	{"emi_home", []string{"home loan", "hdfc ltd"}},
	{"emi_car", []string{"car loan", "auto loan"}},
	{"credit_card", []string{"credit card", "card payment"}},
	{"food", []string{"zomato", "swiggy", "eating"}},
	{"fuel", []string{"fuel", "petrol", "shell"}},
	{"shopping", []string{"amazon", "flipkart", "shopping"}},
	{"utilities", []string{"electricity", "bescom", "water", "gas"}},
	{"insurance", []string{"insurance"}},
	{"entertainment", []string{"netflix", "hotstar", "entertainment"}},
	{"peer_payment", []string{"upi", "to", "from"}},
}

// Categorize maps a free-text narration to a category label by
// case-insensitive substring match. Unmatched narrations fall back to
// CategoryMisc.
func Categorize(narration string) string {
	narration = strings.ToLower(narration)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(narration, kw) {
				return rule.label
			}
		}
	}
	return CategoryMisc
}
