package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CategoryRule assigns a category to imported transactions whose merchant
// matches MerchantPattern and whose amount satisfies AmountCondition.
type CategoryRule struct {
	CreatedAt       time.Time `json:"createdAt"`
	AmountValue     *float64  `json:"amountValue,omitempty"`
	AmountMin       *float64  `json:"amountMin,omitempty"`
	AmountMax       *float64  `json:"amountMax,omitempty"`
	Name            string    `json:"name"`
	MerchantPattern string    `json:"merchantPattern"`
	AmountCondition string    `json:"amountCondition"`
	Category        string    `json:"category"`
	ID              int64     `json:"id"`
	Priority        int       `json:"priority"`
	UseCount        int       `json:"useCount"`
	IsRegex         bool      `json:"isRegex"`
	IsActive        bool      `json:"isActive"`
}

// AmountConditionType represents the type of amount comparison.
type AmountConditionType string

// Amount condition constants.
const (
	AmountLessThan     AmountConditionType = "lt"
	AmountLessEqual    AmountConditionType = "le"
	AmountEqual        AmountConditionType = "eq"
	AmountGreaterEqual AmountConditionType = "ge"
	AmountGreaterThan  AmountConditionType = "gt"
	AmountRange        AmountConditionType = "range"
	AmountAny          AmountConditionType = "any"
)

// Normalize trims text fields and fills the name and amount condition.
func (r *CategoryRule) Normalize() {
	r.MerchantPattern = strings.TrimSpace(r.MerchantPattern)
	r.Category = strings.TrimSpace(r.Category)
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = r.MerchantPattern
	}
	if r.AmountCondition == "" {
		r.AmountCondition = string(AmountAny)
	}
}

// Validate checks a rule can be stored and matched.
func (r *CategoryRule) Validate() error {
	if r.MerchantPattern == "" {
		return fmt.Errorf("merchant pattern is required")
	}
	if r.IsRegex {
		if _, err := regexp.Compile(r.MerchantPattern); err != nil {
			return fmt.Errorf("invalid merchant pattern: %w", err)
		}
	}
	if !IsKnownCategory(r.Category) {
		return fmt.Errorf("unknown category %q", r.Category)
	}

	for _, v := range []*float64{r.AmountValue, r.AmountMin, r.AmountMax} {
		if v != nil && !IsFinite(*v) {
			return fmt.Errorf("rule amounts must be finite numbers, got %v", *v)
		}
	}

	switch AmountConditionType(r.AmountCondition) {
	case AmountAny:
	case AmountLessThan, AmountLessEqual, AmountEqual, AmountGreaterEqual, AmountGreaterThan:
		if r.AmountValue == nil {
			return fmt.Errorf("amount condition %q needs an amount", r.AmountCondition)
		}
	case AmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return fmt.Errorf("amount range needs a minimum or a maximum")
		}
		if r.AmountMin != nil && r.AmountMax != nil && *r.AmountMin > *r.AmountMax {
			return fmt.Errorf("amount range minimum %.2f is above maximum %.2f", *r.AmountMin, *r.AmountMax)
		}
	default:
		return fmt.Errorf("unknown amount condition %q", r.AmountCondition)
	}
	return nil
}

// MatchesAmount reports whether amount satisfies the rule's amount condition.
func (r *CategoryRule) MatchesAmount(amount float64) bool {
	switch AmountConditionType(r.AmountCondition) {
	case AmountAny, "":
		return true
	case AmountLessThan:
		return r.AmountValue != nil && amount < *r.AmountValue
	case AmountLessEqual:
		return r.AmountValue != nil && amount <= *r.AmountValue
	case AmountEqual:
		return r.AmountValue != nil && amount == *r.AmountValue
	case AmountGreaterEqual:
		return r.AmountValue != nil && amount >= *r.AmountValue
	case AmountGreaterThan:
		return r.AmountValue != nil && amount > *r.AmountValue
	case AmountRange:
		if r.AmountMin != nil && amount < *r.AmountMin {
			return false
		}
		if r.AmountMax != nil && amount > *r.AmountMax {
			return false
		}
		return true
	}
	return false
}

// DescribeAmount renders the amount condition for display, or "" for any amount.
func (r *CategoryRule) DescribeAmount() string {
	value := func(v *float64) string {
		if v == nil {
			return "?"
		}
		return fmt.Sprintf("$%.2f", *v)
	}
	switch AmountConditionType(r.AmountCondition) {
	case AmountLessThan:
		return "under " + value(r.AmountValue)
	case AmountLessEqual:
		return "at most " + value(r.AmountValue)
	case AmountEqual:
		return "exactly " + value(r.AmountValue)
	case AmountGreaterEqual:
		return "at least " + value(r.AmountValue)
	case AmountGreaterThan:
		return "over " + value(r.AmountValue)
	case AmountRange:
		switch {
		case r.AmountMin != nil && r.AmountMax != nil:
			return "between " + value(r.AmountMin) + " and " + value(r.AmountMax)
		case r.AmountMin != nil:
			return "at least " + value(r.AmountMin)
		case r.AmountMax != nil:
			return "at most " + value(r.AmountMax)
		}
	}
	return ""
}
