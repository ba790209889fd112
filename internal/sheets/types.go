package sheets

import (
	"context"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/shopspring/decimal"
)

// ReportWriter writes a spending report somewhere a human can read it.
type ReportWriter interface {
	Write(ctx context.Context, report *Report) error
}

// DateRange represents the time period covered by the report.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SummaryRow holds the headline numbers.
type SummaryRow struct {
	BiggestCategory       string
	TotalSpend            decimal.Decimal
	AvgMonthlySpend       decimal.Decimal
	BiggestCategoryAmount decimal.Decimal
	MoMChange             decimal.Decimal // percent
	TotalPoints           decimal.Decimal
	TransactionCount      int
}

// MonthlyRow represents a single row in the Monthly section.
type MonthlyRow struct {
	Month  string // e.g., "January 2024"
	Amount decimal.Decimal
}

// CategoryRow represents a single row in the Category section.
type CategoryRow struct {
	Category string
	Amount   decimal.Decimal
	Points   decimal.Decimal
}

// MerchantRow represents a single row in the Top Merchants section.
type MerchantRow struct {
	Merchant string
	Amount   decimal.Decimal
	Count    int
}

// RedemptionRow represents one ranked redemption option.
type RedemptionRow struct {
	Profile        string
	Type           string
	Explanation    string
	CashValue      decimal.Decimal
	Fees           decimal.Decimal
	NetValue       decimal.Decimal
	CPP            decimal.Decimal
	PointsRequired int64
	LowValue       bool
}

// Report holds everything written to the spreadsheet.
type Report struct {
	DateRange   DateRange
	Summary     SummaryRow
	Monthly     []MonthlyRow
	Categories  []CategoryRow
	Merchants   []MerchantRow
	Redemptions []RedemptionRow
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// BuildReport rounds the analytics results into report rows. Amounts and
// CPP are rounded to cents, points to whole points.
func BuildReport(
	summary analytics.Analytics,
	points analytics.PointsEstimate,
	recs []analytics.ProfileRecommendation,
	from, to time.Time,
) *Report {
	report := &Report{
		DateRange: DateRange{Start: from, End: to},
		Summary: SummaryRow{
			TotalSpend:            money(summary.TotalSpend),
			AvgMonthlySpend:       money(summary.AvgMonthlySpend),
			BiggestCategory:       summary.BiggestCategory,
			BiggestCategoryAmount: money(summary.BiggestCategoryAmount),
			MoMChange:             decimal.NewFromFloat(summary.MoMChange).Round(1),
			TotalPoints:           decimal.NewFromFloat(points.Total).Round(0),
			TransactionCount:      summary.TransactionCount,
		},
	}

	for _, m := range summary.MonthlyTotals {
		label := m.Month
		if t, err := time.Parse(analytics.MonthFormat, m.Month); err == nil {
			label = t.Format("January 2006")
		}
		report.Monthly = append(report.Monthly, MonthlyRow{Month: label, Amount: money(m.Total)})
	}

	for _, c := range summary.CategoryTotals {
		report.Categories = append(report.Categories, CategoryRow{
			Category: c.Category,
			Amount:   money(c.Total),
			Points:   decimal.NewFromFloat(points.ByCategory[c.Category]).Round(0),
		})
	}
	for _, m := range summary.TopMerchants {
		report.Merchants = append(report.Merchants, MerchantRow{
			Merchant: m.Merchant,
			Amount:   money(m.Total),
			Count:    m.Count,
		})
	}

	for _, rec := range recs {
		for _, r := range rec.Ranked {
			report.Redemptions = append(report.Redemptions, RedemptionRow{
				Profile:        rec.Profile.Name,
				Type:           r.Option.Type.Label(),
				Explanation:    r.Explanation,
				PointsRequired: r.Option.PointsRequired,
				CashValue:      money(r.Option.CashValue),
				Fees:           money(r.Option.Fees),
				NetValue:       money(r.NetValue),
				CPP:            money(r.CPP),
				LowValue:       r.IsLowValue,
			})
		}
	}

	return report
}
