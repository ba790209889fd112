package testutil

import (
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// Date returns midnight UTC on the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SampleTransactions returns three months of card spending across two cards.
// January totals 135.00, February 550.00 and March 40.00.
func SampleTransactions() []model.Transaction {
	return []model.Transaction{
		{Date: Date(2024, 1, 5), Merchant: "Whole Foods", Category: "Groceries", CardLabel: "Amex Gold", Amount: 120},
		{Date: Date(2024, 1, 18), Merchant: "Chipotle", Category: "Dining", CardLabel: "Sapphire", Amount: 15},
		{Date: Date(2024, 2, 2), Merchant: "Whole Foods", Category: "Groceries", CardLabel: "Amex Gold", Amount: 80},
		{Date: Date(2024, 2, 14), Merchant: "Delta", Category: "Travel", CardLabel: "Sapphire", Amount: 450},
		{Date: Date(2024, 2, 29), Merchant: "Chipotle", Category: "Dining", CardLabel: "Sapphire", Amount: 20},
		{Date: Date(2024, 3, 1), Merchant: "Shell", Category: "Gas", CardLabel: "Sapphire", Amount: 40},
	}
}

// SampleProfiles returns one profile with a spread of redemption values and
// one profile without options.
func SampleProfiles() []model.RewardProfile {
	return []model.RewardProfile{
		{
			Name:    "Ultimate Rewards",
			Balance: 80000,
			Options: []model.RedemptionOption{
				{Type: model.RedemptionGiftCard, PointsRequired: 10000, CashValue: 80},
				{Type: model.RedemptionTransferToPartner, PointsRequired: 20000, CashValue: 450, Fees: 12.5},
				{Type: model.RedemptionStatementCredit, PointsRequired: 10000, CashValue: 100},
				{Type: model.RedemptionTravelPortal, PointsRequired: 10000, CashValue: 150},
			},
		},
		{Name: "Hotel Points", Balance: 1000},
	}
}
