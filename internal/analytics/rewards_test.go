package analytics

import (
	"math/rand"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCPP(t *testing.T) {
	tests := []struct {
		name   string
		cash   float64
		fees   float64
		points int64
		want   float64
	}{
		{name: "statement credit", cash: 100, fees: 0, points: 10000, want: 1},
		{name: "transfer partner", cash: 420, fees: 5.6, points: 20000, want: (420 - 5.6) / 20000 * 100},
		{name: "zero points", cash: 100, fees: 0, points: 0, want: 0},
		{name: "fees exceed value", cash: 10, fees: 25, points: 1000, want: (10.0 - 25.0) / 1000 * 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Exact equality: the formula must be applied as written.
			assert.Equal(t, tt.want, ComputeCPP(tt.cash, tt.fees, tt.points))
		})
	}
}

func TestComputeNetValueAndFormat(t *testing.T) {
	assert.Equal(t, 94.5, ComputeNetValue(100, 5.5))
	assert.Equal(t, "1.25¢", FormatCPP(1.25))
	assert.Equal(t, "0.00¢", FormatCPP(0))
}

func TestRankRedemptionOptions(t *testing.T) {
	options := []model.RedemptionOption{
		{ID: 1, Type: model.RedemptionGiftCard, PointsRequired: 10000, CashValue: 80},
		{ID: 2, Type: model.RedemptionTransferToPartner, PointsRequired: 20000, CashValue: 450, Fees: 12.5},
		{ID: 3, Type: model.RedemptionStatementCredit, PointsRequired: 10000, CashValue: 100},
		{ID: 4, Type: model.RedemptionTravelPortal, PointsRequired: 10000, CashValue: 150},
	}

	ranked := RankRedemptionOptions(options, 1.0)
	require.Len(t, ranked, 4)

	assert.Equal(t, int64(2), ranked[0].Option.ID)
	assert.Equal(t, int64(4), ranked[1].Option.ID)
	assert.Equal(t, int64(3), ranked[2].Option.ID)
	assert.Equal(t, int64(1), ranked[3].Option.ID)

	assert.Equal(t, "Excellent value - significantly better than typical redemptions. Note: $12.50 in fees reduces net value.", ranked[0].Explanation)
	assert.Equal(t, "Good value - above average redemption rate.", ranked[1].Explanation)
	assert.Equal(t, "Decent value - typical for statement credits.", ranked[2].Explanation)
	assert.Equal(t, "Below average value - consider other redemption options.", ranked[3].Explanation)

	assert.InDelta(t, 437.5, ranked[0].NetValue, 1e-9)
	assert.False(t, ranked[2].IsLowValue, "1.0 CPP is not below a 1.0 threshold")
	assert.True(t, ranked[3].IsLowValue)

	low := ranked.LowValue()
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].Option.ID)
}

func TestRankRedemptionOptions_StableForTies(t *testing.T) {
	options := []model.RedemptionOption{
		{ID: 10, PointsRequired: 1000, CashValue: 10},
		{ID: 11, PointsRequired: 2000, CashValue: 20},
		{ID: 12, PointsRequired: 500, CashValue: 5},
	}

	ranked := RankRedemptionOptions(options, 1.0)
	assert.Equal(t, int64(10), ranked[0].Option.ID)
	assert.Equal(t, int64(11), ranked[1].Option.ID)
	assert.Equal(t, int64(12), ranked[2].Option.ID)
}

func TestRankRedemptionOptions_NonIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 100; run++ {
		n := rng.Intn(30) + 1
		options := make([]model.RedemptionOption, n)
		for i := range options {
			options[i] = model.RedemptionOption{
				ID:             int64(i),
				PointsRequired: int64(rng.Intn(100000)),
				CashValue:      float64(rng.Intn(200000)) / 100,
				Fees:           float64(rng.Intn(5000)) / 100,
			}
		}

		ranked := RankRedemptionOptions(options, 1.0)
		require.Len(t, ranked, n)
		for i := 1; i < len(ranked); i++ {
			assert.GreaterOrEqual(t, ranked[i-1].CPP, ranked[i].CPP, "run %d index %d", run, i)
		}
		for _, r := range ranked {
			assert.Equal(t, ComputeCPP(r.Option.CashValue, r.Option.Fees, r.Option.PointsRequired), r.CPP)
		}
	}
}

func TestRecommendProfiles(t *testing.T) {
	profiles := []model.RewardProfile{
		{
			ID:      1,
			Name:    "Ultimate Rewards",
			Balance: 80000,
			Options: []model.RedemptionOption{
				{ID: 1, PointsRequired: 10000, CashValue: 100},
				{ID: 2, PointsRequired: 10000, CashValue: 150},
			},
		},
		{ID: 2, Name: "Empty", Balance: 1000},
	}

	recs := RecommendProfiles(profiles, 1.0)
	require.Len(t, recs, 2)

	require.NotNil(t, recs[0].Best)
	assert.Equal(t, int64(2), recs[0].Best.Option.ID)
	assert.InDelta(t, 1200.0, recs[0].BalanceValue, 1e-9)

	assert.Nil(t, recs[1].Best)
	assert.Zero(t, recs[1].BalanceValue)
}
