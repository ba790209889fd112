// Package analytics computes spending summaries, points estimates and
// redemption rankings over in-memory transaction and reward data.
package analytics

import (
	"sort"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// MonthFormat is the key format used for monthly buckets.
const MonthFormat = "2006-01"

// TopMerchantLimit caps the merchant leaderboard.
const TopMerchantLimit = 10

// MonthlyTotal is spending within one calendar month.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// CategoryTotal is spending within one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// TopMerchant is spending and visit count at one merchant.
type TopMerchant struct {
	Merchant string  `json:"merchant"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// Analytics is the dashboard summary for a date range.
type Analytics struct {
	BiggestCategory       string          `json:"biggestCategory"`
	MonthlyTotals         []MonthlyTotal  `json:"monthlyTotals"`
	CategoryTotals        []CategoryTotal `json:"categoryTotals"`
	TopMerchants          []TopMerchant   `json:"topMerchants"`
	TotalSpend            float64         `json:"totalSpend"`
	BiggestCategoryAmount float64         `json:"biggestCategoryAmount"`
	MoMChange             float64         `json:"momChange"`
	AvgMonthlySpend       float64         `json:"avgMonthlySpend"`
	TransactionCount      int             `json:"transactionCount"`
}

// InRange returns the transactions dated between from and to, inclusive,
// compared by calendar day.
func InRange(transactions []model.Transaction, from, to time.Time) []model.Transaction {
	return model.TransactionFilter{DateFrom: &from, DateTo: &to}.Apply(transactions)
}

// ComputeAnalytics summarizes the transactions dated within [from, to].
func ComputeAnalytics(transactions []model.Transaction, from, to time.Time) Analytics {
	filtered := InRange(transactions, from, to)

	var totalSpend float64
	for _, t := range filtered {
		totalSpend += t.Amount
	}

	monthlyTotals := MonthlyTotals(filtered)
	categoryTotals := CategoryTotals(filtered)

	result := Analytics{
		TotalSpend:       totalSpend,
		MonthlyTotals:    monthlyTotals,
		CategoryTotals:   categoryTotals,
		TopMerchants:     TopMerchants(filtered, TopMerchantLimit),
		MoMChange:        MoMChange(monthlyTotals),
		TransactionCount: len(filtered),
	}

	if len(categoryTotals) > 0 {
		result.BiggestCategory = categoryTotals[0].Category
		result.BiggestCategoryAmount = categoryTotals[0].Total
	}

	monthCount := len(monthlyTotals)
	if monthCount == 0 {
		monthCount = 1
	}
	result.AvgMonthlySpend = totalSpend / float64(monthCount)

	return result
}

// MonthlyTotals groups spending by calendar month, oldest first.
func MonthlyTotals(transactions []model.Transaction) []MonthlyTotal {
	byMonth := make(map[string]float64)
	for _, t := range transactions {
		byMonth[t.Date.Format(MonthFormat)] += t.Amount
	}

	totals := make([]MonthlyTotal, 0, len(byMonth))
	for month, total := range byMonth {
		totals = append(totals, MonthlyTotal{Month: month, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Month < totals[j].Month
	})
	return totals
}

// CategoryTotals groups spending by category, largest first.
func CategoryTotals(transactions []model.Transaction) []CategoryTotal {
	byCategory := make(map[string]float64)
	for _, t := range transactions {
		byCategory[t.Category] += t.Amount
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		totals = append(totals, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// TopMerchants ranks merchants by spend and keeps the first limit entries.
// A non-positive limit keeps all of them.
func TopMerchants(transactions []model.Transaction, limit int) []TopMerchant {
	byMerchant := make(map[string]*TopMerchant)
	for _, t := range transactions {
		m, ok := byMerchant[t.Merchant]
		if !ok {
			m = &TopMerchant{Merchant: t.Merchant}
			byMerchant[t.Merchant] = m
		}
		m.Total += t.Amount
		m.Count++
	}

	merchants := make([]TopMerchant, 0, len(byMerchant))
	for _, m := range byMerchant {
		merchants = append(merchants, *m)
	}
	sort.Slice(merchants, func(i, j int) bool {
		if merchants[i].Total != merchants[j].Total {
			return merchants[i].Total > merchants[j].Total
		}
		return merchants[i].Merchant < merchants[j].Merchant
	})

	if limit > 0 && len(merchants) > limit {
		merchants = merchants[:limit]
	}
	return merchants
}

// MoMChange is the percentage change between the last two months, or 0 when
// there are fewer than two months or the earlier month had no spending.
func MoMChange(monthly []MonthlyTotal) float64 {
	if len(monthly) < 2 {
		return 0
	}
	last := monthly[len(monthly)-1].Total
	prev := monthly[len(monthly)-2].Total
	if prev <= 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// DefaultRangeMonths is the window shown when no dates are given.
const DefaultRangeMonths = 12

// LastMonths returns the range from the first day of the month n-1 months
// before now through now's calendar day. n below 1 is treated as 1.
func LastMonths(now time.Time, n int) (from, to time.Time) {
	if n < 1 {
		n = 1
	}
	to = model.Day(now)
	from = time.Date(to.Year(), to.Month()-time.Month(n-1), 1, 0, 0, 0, 0, time.UTC)
	return from, to
}
