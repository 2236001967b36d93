package analytics

import (
	"fmt"
	"time"

	"github.com/avigne/subtrack/internal/models"
)

// ForecastPeriod is one projected calendar month.
type ForecastPeriod struct {
	Period string  `json:"period"` // Format: YYYY-MM
	Amount float64 `json:"amount"`
}

// ForecastResult projects future billing onto a calendar grid of
// exactly N contiguous months starting at the current month.
type ForecastResult struct {
	Periods    []ForecastPeriod `json:"periods"`
	Months     int              `json:"months"`
	Total      float64          `json:"total"`
	Average    float64          `json:"average"`
	PeakPeriod string           `json:"peak_period"`
	PeakAmount float64          `json:"peak_amount"`
	Trend      float64          `json:"trend"`
}

// ForecastCosts projects the per-period payments of every active
// subscription over the next months. Each payment lands in the
// year-month bucket of its due date at the full period amount
// (monthly price times months covered by the billing period).
func (e *Engine) ForecastCosts(subs []*models.Subscription, months int) (*ForecastResult, error) {
	if months <= 0 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", months)
	}
	if err := checkRecords(subs); err != nil {
		return nil, err
	}

	start := time.Date(e.now.Year(), e.now.Month(), e.now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, months, 0)
	buckets := make(map[string]float64, months)

	for _, s := range subs {
		if !s.IsActive(e.now) {
			continue
		}
		periodMonths := s.BillingFrequency.Months()
		amount := s.MonthlyPrice * float64(periodMonths)

		due := s.StartDate
		for due.Before(start) {
			due = due.AddDate(0, periodMonths, 0)
		}
		for due.Before(end) {
			buckets[due.Format("2006-01")] += amount
			due = due.AddDate(0, periodMonths, 0)
		}
	}

	result := &ForecastResult{
		Periods: make([]ForecastPeriod, 0, months),
		Months:  months,
	}
	cursor := start
	for i := 0; i < months; i++ {
		label := cursor.Format("2006-01")
		amount := round2(buckets[label])
		result.Periods = append(result.Periods, ForecastPeriod{Period: label, Amount: amount})
		result.Total += amount
		if amount > result.PeakAmount || result.PeakPeriod == "" {
			result.PeakPeriod = label
			result.PeakAmount = amount
		}
		cursor = cursor.AddDate(0, 1, 0)
	}

	result.Total = round2(result.Total)
	result.Average = round2(result.Total / float64(months))

	first := result.Periods[0].Amount
	last := result.Periods[len(result.Periods)-1].Amount
	denom := first
	if denom <= 0 {
		denom = 1
	}
	result.Trend = (last - first) / denom

	return result, nil
}
