package plaid

import "strings"

// categoryRule maps a Plaid category path prefix to a spendwise category.
// Rules are checked in order so more specific paths come first.
type categoryRule struct {
	prefix   []string
	category string
}

var categoryRules = []categoryRule{
	{prefix: []string{"Shops", "Supermarkets and Groceries"}, category: "Groceries"},
	{prefix: []string{"Food and Drink"}, category: "Dining"},
	{prefix: []string{"Travel", "Gas Stations"}, category: "Gas"},
	{prefix: []string{"Travel", "Taxi"}, category: "Transportation"},
	{prefix: []string{"Travel", "Public Transportation Services"}, category: "Transportation"},
	{prefix: []string{"Travel", "Car Service"}, category: "Transportation"},
	{prefix: []string{"Travel", "Parking"}, category: "Transportation"},
	{prefix: []string{"Travel"}, category: "Travel"},
	{prefix: []string{"Service", "Utilities"}, category: "Bills & Utilities"},
	{prefix: []string{"Service", "Telecommunication Services"}, category: "Bills & Utilities"},
	{prefix: []string{"Service", "Subscription"}, category: "Bills & Utilities"},
	{prefix: []string{"Service", "Entertainment"}, category: "Entertainment"},
	{prefix: []string{"Recreation"}, category: "Entertainment"},
	{prefix: []string{"Healthcare"}, category: "Healthcare"},
	{prefix: []string{"Bank Fees"}, category: "Bills & Utilities"},
	{prefix: []string{"Shops"}, category: "Shopping"},
}

// mapCategory converts Plaid's category hierarchy into a spendwise category.
func mapCategory(hierarchy []string) string {
	for _, rule := range categoryRules {
		if hasPrefix(hierarchy, rule.prefix) {
			return rule.category
		}
	}
	return "Other"
}

func hasPrefix(hierarchy, prefix []string) bool {
	if len(hierarchy) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if !strings.EqualFold(strings.TrimSpace(hierarchy[i]), p) {
			return false
		}
	}
	return true
}
