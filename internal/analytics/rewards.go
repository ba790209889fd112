package analytics

import (
	"fmt"
	"sort"

	"github.com/Veraticus/spendwise/internal/model"
)

// Value tiers in cents per point.
const (
	ExcellentCPP = 2.0
	GoodCPP      = 1.5
	DecentCPP    = 1.0
)

// ComputeCPP returns the cents-per-point of a redemption. A redemption that
// needs no points has no meaningful rate and reports 0.
func ComputeCPP(cashValue, fees float64, pointsRequired int64) float64 {
	if pointsRequired == 0 {
		return 0
	}
	netValue := cashValue - fees
	return netValue / float64(pointsRequired) * 100
}

// ComputeNetValue is the cash a redemption yields after fees.
func ComputeNetValue(cashValue, fees float64) float64 {
	return cashValue - fees
}

// FormatCPP renders a CPP value for display.
func FormatCPP(cpp float64) string {
	return fmt.Sprintf("%.2f¢", cpp)
}

// RankedOption is a redemption option annotated with its value.
type RankedOption struct {
	Explanation string                 `json:"explanation"`
	Option      model.RedemptionOption `json:"option"`
	CPP         float64                `json:"cpp"`
	NetValue    float64                `json:"netValue"`
	IsLowValue  bool                   `json:"isLowValue"`
}

// RankedOptions is a slice of RankedOption ordered best value first.
type RankedOptions []RankedOption

// Len implements sort.Interface.
func (r RankedOptions) Len() int {
	return len(r)
}

// Less implements sort.Interface - higher CPP comes first.
func (r RankedOptions) Less(i, j int) bool {
	return r[i].CPP > r[j].CPP
}

// Swap implements sort.Interface.
func (r RankedOptions) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Best returns the highest-value option, or nil if empty.
func (r RankedOptions) Best() *RankedOption {
	if len(r) == 0 {
		return nil
	}
	return &r[0]
}

// LowValue returns the options flagged as below the threshold.
func (r RankedOptions) LowValue() RankedOptions {
	var result RankedOptions
	for _, option := range r {
		if option.IsLowValue {
			result = append(result, option)
		}
	}
	return result
}

// RankRedemptionOptions values every option and orders them by CPP, highest
// first. Options with equal CPP keep their input order.
func RankRedemptionOptions(options []model.RedemptionOption, lowValueThreshold float64) RankedOptions {
	ranked := make(RankedOptions, 0, len(options))
	for _, option := range options {
		cpp := ComputeCPP(option.CashValue, option.Fees, option.PointsRequired)
		ranked = append(ranked, RankedOption{
			Option:      option,
			CPP:         cpp,
			NetValue:    ComputeNetValue(option.CashValue, option.Fees),
			Explanation: explain(cpp, option.Fees),
			IsLowValue:  cpp < lowValueThreshold,
		})
	}

	sort.Stable(ranked)
	return ranked
}

func explain(cpp, fees float64) string {
	var explanation string
	switch {
	case cpp >= ExcellentCPP:
		explanation = "Excellent value - significantly better than typical redemptions."
	case cpp >= GoodCPP:
		explanation = "Good value - above average redemption rate."
	case cpp >= DecentCPP:
		explanation = "Decent value - typical for statement credits."
	default:
		explanation = "Below average value - consider other redemption options."
	}

	if fees > 0 {
		explanation += fmt.Sprintf(" Note: $%.2f in fees reduces net value.", fees)
	}
	return explanation
}

// ProfileRecommendation summarizes the ranked options for one reward profile.
type ProfileRecommendation struct {
	Best    *RankedOption       `json:"best,omitempty"`
	Profile model.RewardProfile `json:"profile"`
	Ranked  RankedOptions       `json:"ranked"`
	// BalanceValue is the cash the whole balance is worth at the best CPP.
	BalanceValue float64 `json:"balanceValue"`
}

// RecommendProfiles ranks the options of every profile.
func RecommendProfiles(profiles []model.RewardProfile, lowValueThreshold float64) []ProfileRecommendation {
	recs := make([]ProfileRecommendation, 0, len(profiles))
	for _, profile := range profiles {
		ranked := RankRedemptionOptions(profile.Options, lowValueThreshold)
		rec := ProfileRecommendation{
			Profile: profile,
			Ranked:  ranked,
		}
		if best := ranked.Best(); best != nil {
			bestCopy := *best
			rec.Best = &bestCopy
			rec.BalanceValue = float64(profile.Balance) * best.CPP / 100
		}
		recs = append(recs, rec)
	}
	return recs
}
