package analytics

import (
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// PointsEstimate is the points earned in a date range.
type PointsEstimate struct {
	ByCategory map[string]float64 `json:"byCategory"`
	Total      float64            `json:"total"`
}

// EstimatePointsEarned applies rates to each transaction dated within [from, to].
func EstimatePointsEarned(transactions []model.Transaction, rates model.EarningRates, from, to time.Time) PointsEstimate {
	estimate := PointsEstimate{ByCategory: make(map[string]float64)}

	for _, t := range InRange(transactions, from, to) {
		estimate.ByCategory[t.Category] += t.Amount * rates.RateFor(t.CardLabel, t.Category)
	}

	for _, points := range estimate.ByCategory {
		estimate.Total += points
	}
	return estimate
}
