// Package pattern assigns categories to transactions from merchant rules.
package pattern

import (
	"context"

	"github.com/Veraticus/spendwise/internal/model"
)

// Rule is an alias to the model.CategoryRule type for convenience.
type Rule = model.CategoryRule

// RuleStore loads active rules and records how often they fire.
type RuleStore interface {
	ListCategoryRules(ctx context.Context, activeOnly bool) ([]model.CategoryRule, error)
	RecordRuleUse(ctx context.Context, uses map[int64]int) error
}

// Result reports what Categorize changed.
type Result struct {
	Uses        map[int64]int // stored rule ID to transactions it categorized
	RuleIDs     []int64       // per transaction, the stored rule that categorized it or 0
	Categorized int
	BuiltIn     int // transactions categorized by built-in rules
}

// UsesAmong counts rule uses over the transactions whose IDs are in ids.
// txns must be the slice Categorize was given.
func (r Result) UsesAmong(txns []model.Transaction, ids []string) map[int64]int {
	stored := make(map[string]bool, len(ids))
	for _, id := range ids {
		stored[id] = true
	}
	uses := map[int64]int{}
	for i, ruleID := range r.RuleIDs {
		if ruleID > 0 && i < len(txns) && txns[i].ID != "" && stored[txns[i].ID] {
			uses[ruleID]++
		}
	}
	return uses
}

// Suggestion proposes a rule for a merchant that is always filed the same way.
type Suggestion struct {
	Merchant string `json:"merchant"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Count    int    `json:"count"`
}
