package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// Source is the read side of storage a dashboard is built from.
type Source interface {
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	GetEarningRates(ctx context.Context) (model.EarningRates, error)
	GetAdvisorySettings(ctx context.Context) (model.AdvisorySettings, error)
	GetRewardProfiles(ctx context.Context) ([]model.RewardProfile, error)
}

// Dashboard bundles every figure shown for a date range.
type Dashboard struct {
	From            time.Time               `json:"from"`
	To              time.Time               `json:"to"`
	Summary         Analytics               `json:"summary"`
	Points          PointsEstimate          `json:"points"`
	Recommendations []ProfileRecommendation `json:"recommendations"`
	Threshold       float64                 `json:"threshold"`
}

// LoadDashboard reads the range's transactions, rates, settings and profiles
// from src and computes the dashboard.
func LoadDashboard(ctx context.Context, src Source, from, to time.Time) (*Dashboard, error) {
	from, to = model.Day(from), model.Day(to)
	txns, err := src.ListTransactions(ctx, model.TransactionFilter{DateFrom: &from, DateTo: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	rates, err := src.GetEarningRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load earning rates: %w", err)
	}
	settings, err := src.GetAdvisorySettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load advisory settings: %w", err)
	}
	profiles, err := src.GetRewardProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward profiles: %w", err)
	}

	return &Dashboard{
		From:            from,
		To:              to,
		Summary:         ComputeAnalytics(txns, from, to),
		Points:          EstimatePointsEarned(txns, rates, from, to),
		Recommendations: RecommendProfiles(profiles, settings.LowValueThreshold),
		Threshold:       settings.LowValueThreshold,
	}, nil
}
