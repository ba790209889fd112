package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

type compiledRule struct {
	re   *regexp.Regexp
	rule Rule
}

// Matcher evaluates transactions against category rules.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher creates a matcher over the active rules, highest priority first.
// Rules with equal priority keep their given order. Regex rules that fail to
// compile are skipped.
func NewMatcher(rules []Rule) *Matcher {
	m := &Matcher{}
	for _, rule := range rules {
		if !rule.IsActive || rule.MerchantPattern == "" {
			continue
		}
		cr := compiledRule{rule: rule}
		if rule.IsRegex {
			re, err := regexp.Compile("(?i)" + rule.MerchantPattern)
			if err != nil {
				slog.Warn("Skipping category rule with invalid pattern", "rule", rule.Name, "error", err)
				continue
			}
			cr.re = re
		}
		m.rules = append(m.rules, cr)
	}

	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].rule.Priority > m.rules[j].rule.Priority
	})
	return m
}

// Match returns the first rule the transaction satisfies.
func (m *Matcher) Match(txn model.Transaction) (Rule, bool) {
	for _, cr := range m.rules {
		if cr.matchesMerchant(txn) && cr.rule.MatchesAmount(txn.Amount) {
			return cr.rule, true
		}
	}
	return Rule{}, false
}

// Len reports how many rules the matcher evaluates.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// matchesMerchant compares plain patterns case-insensitively as substrings of
// the merchant. Regex patterns also see the raw statement description.
func (cr compiledRule) matchesMerchant(txn model.Transaction) bool {
	if cr.re != nil {
		return cr.re.MatchString(txn.Merchant) || (txn.RawDescription != "" && cr.re.MatchString(txn.RawDescription))
	}
	return strings.Contains(strings.ToLower(txn.Merchant), strings.ToLower(cr.rule.MerchantPattern))
}

// Categorize assigns a category to every transaction still in the default
// category that a rule matches. Transactions that arrived with a category
// are left alone.
func (m *Matcher) Categorize(txns []model.Transaction) Result {
	res := Result{Uses: map[int64]int{}, RuleIDs: make([]int64, len(txns))}
	for i := range txns {
		if txns[i].Category != "" && txns[i].Category != model.DefaultCategory {
			continue
		}
		rule, ok := m.Match(txns[i])
		if !ok || rule.Category == model.DefaultCategory {
			continue
		}
		txns[i].Category = rule.Category
		res.Categorized++
		if rule.ID > 0 {
			res.Uses[rule.ID]++
			res.RuleIDs[i] = rule.ID
		} else {
			res.BuiltIn++
		}
	}
	return res
}

// LoadMatcher builds a matcher from the stored active rules, followed by the
// built-in rules unless withBuiltIn is false.
func LoadMatcher(ctx context.Context, store RuleStore, withBuiltIn bool) (*Matcher, error) {
	rules, err := store.ListCategoryRules(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}
	if withBuiltIn {
		rules = append(rules, DefaultRules()...)
	}
	return NewMatcher(rules), nil
}

// RecordStoredUses adds to each rule's use count the transactions it
// categorized that were stored under one of ids. Rows skipped as duplicates
// are not counted.
func RecordStoredUses(ctx context.Context, store RuleStore, res Result, txns []model.Transaction, ids []string) error {
	uses := res.UsesAmong(txns, ids)
	if len(uses) == 0 {
		return nil
	}
	if err := store.RecordRuleUse(ctx, uses); err != nil {
		return fmt.Errorf("failed to record rule use: %w", err)
	}
	return nil
}
