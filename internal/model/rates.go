package model

import (
	"fmt"
	"sort"
)

// DefaultRate is the points-per-dollar used when nothing more specific is configured.
const DefaultRate = 1.0

// DefaultLowValueThreshold is the CPP below which a redemption is flagged.
const DefaultLowValueThreshold = 1.0

// EarningRates maps spending to points.
type EarningRates struct {
	CategoryRates map[string]float64            `json:"categoryRates" yaml:"category_rates"`
	CardOverrides map[string]map[string]float64 `json:"cardOverrides" yaml:"card_overrides"`
}

// DefaultEarningRates returns 1x on the common categories and no card overrides.
func DefaultEarningRates() EarningRates {
	return EarningRates{
		CategoryRates: map[string]float64{
			"Dining":        1,
			"Travel":        1,
			"Groceries":     1,
			"Gas":           1,
			"Entertainment": 1,
			"Shopping":      1,
			"Other":         1,
		},
		CardOverrides: map[string]map[string]float64{},
	}
}

// RateFor returns the points-per-dollar for a purchase on card in category.
// A card override wins over the category rate; zero rates fall through.
func (r EarningRates) RateFor(cardLabel, category string) float64 {
	rate := r.CategoryRates[category]
	if rate == 0 {
		rate = DefaultRate
	}
	if cardLabel != "" {
		if override := r.CardOverrides[cardLabel][category]; override != 0 {
			rate = override
		}
	}
	return rate
}

// SetCategoryRate sets the base rate for a category.
func (r *EarningRates) SetCategoryRate(category string, rate float64) error {
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if !validRate(rate) {
		return fmt.Errorf("rate must be a non-negative number, got %v", rate)
	}
	if r.CategoryRates == nil {
		r.CategoryRates = make(map[string]float64)
	}
	r.CategoryRates[category] = rate
	return nil
}

// SetCardOverride sets a card-specific rate for a category.
func (r *EarningRates) SetCardOverride(cardLabel, category string, rate float64) error {
	if cardLabel == "" {
		return fmt.Errorf("card label is required")
	}
	if category == "" {
		return fmt.Errorf("category is required")
	}
	if !validRate(rate) {
		return fmt.Errorf("rate must be a non-negative number, got %v", rate)
	}
	if r.CardOverrides == nil {
		r.CardOverrides = make(map[string]map[string]float64)
	}
	if r.CardOverrides[cardLabel] == nil {
		r.CardOverrides[cardLabel] = make(map[string]float64)
	}
	r.CardOverrides[cardLabel][category] = rate
	return nil
}

// RemoveCardOverride deletes a card-specific rate. The card entry is dropped
// once it has no categories left.
func (r *EarningRates) RemoveCardOverride(cardLabel, category string) {
	overrides, ok := r.CardOverrides[cardLabel]
	if !ok {
		return
	}
	delete(overrides, category)
	if len(overrides) == 0 {
		delete(r.CardOverrides, cardLabel)
	}
}

// Validate rejects negative rates anywhere in the table.
func (r EarningRates) Validate() error {
	for category, rate := range r.CategoryRates {
		if !validRate(rate) {
			return fmt.Errorf("rate for %q must be a non-negative number, got %v", category, rate)
		}
	}
	for card, overrides := range r.CardOverrides {
		for category, rate := range overrides {
			if !validRate(rate) {
				return fmt.Errorf("override for %q/%q must be a non-negative number, got %v", card, category, rate)
			}
		}
	}
	return nil
}

func validRate(rate float64) bool {
	return rate >= 0 && IsFinite(rate)
}

// SortedCategories returns the configured category names in alphabetical order.
func (r EarningRates) SortedCategories() []string {
	names := make([]string, 0, len(r.CategoryRates))
	for name := range r.CategoryRates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedCards returns the cards that carry overrides in alphabetical order.
func (r EarningRates) SortedCards() []string {
	cards := make([]string, 0, len(r.CardOverrides))
	for card := range r.CardOverrides {
		cards = append(cards, card)
	}
	sort.Strings(cards)
	return cards
}

// AdvisorySettings tunes how redemption recommendations are presented.
type AdvisorySettings struct {
	LowValueThreshold float64 `json:"lowValueThreshold" yaml:"low_value_threshold"`
}

// DefaultAdvisorySettings returns the stock advisory configuration.
func DefaultAdvisorySettings() AdvisorySettings {
	return AdvisorySettings{LowValueThreshold: DefaultLowValueThreshold}
}

// Normalize resets a non-positive or non-finite threshold to the default.
func (a *AdvisorySettings) Normalize() {
	if a.LowValueThreshold <= 0 || !IsFinite(a.LowValueThreshold) {
		a.LowValueThreshold = DefaultLowValueThreshold
	}
}
