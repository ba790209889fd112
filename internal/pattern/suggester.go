package pattern

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

// DefaultMinCount is how many consistently filed transactions a merchant
// needs before a rule is suggested.
const DefaultMinCount = 3

// Suggest proposes rules for merchants whose transactions all share one
// non-default category, at least minCount times, and that existing rules do
// not already file that way.
func Suggest(txns []model.Transaction, existing []Rule, minCount int) []Suggestion {
	if minCount < 1 {
		minCount = DefaultMinCount
	}

	type group struct {
		sample     model.Transaction
		categories map[string]int
		count      int
	}
	groups := map[string]*group{}
	for _, txn := range txns {
		key := strings.ToLower(strings.TrimSpace(txn.Merchant))
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{sample: txn, categories: map[string]int{}}
			groups[key] = g
		}
		g.categories[txn.Category]++
		g.count++
	}

	matcher := NewMatcher(existing)
	var suggestions []Suggestion
	for _, g := range groups {
		if g.count < minCount || len(g.categories) != 1 {
			continue
		}
		category := g.sample.Category
		if category == "" || category == model.DefaultCategory {
			continue
		}
		if rule, ok := matcher.Match(g.sample); ok && rule.Category == category {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Merchant: g.sample.Merchant,
			Category: category,
			Count:    g.count,
			Reason:   fmt.Sprintf("All %d transactions from %s are filed as %s", g.count, g.sample.Merchant, category),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Count != suggestions[j].Count {
			return suggestions[i].Count > suggestions[j].Count
		}
		return strings.ToLower(suggestions[i].Merchant) < strings.ToLower(suggestions[j].Merchant)
	})
	return suggestions
}

// Rule converts a suggestion into an active plain-text rule.
func (s Suggestion) Rule() Rule {
	return Rule{
		Name:            s.Merchant,
		MerchantPattern: s.Merchant,
		AmountCondition: "any",
		Category:        s.Category,
		IsActive:        true,
	}
}
