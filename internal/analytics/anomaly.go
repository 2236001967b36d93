package analytics

import (
	"math"
	"strings"

	"github.com/avigne/subtrack/internal/models"
)

// underutilizedPriceCeiling marks subscriptions so cheap they are
// likely forgotten leftovers rather than deliberate spend.
const underutilizedPriceCeiling = 1.0

// AnomalyReport collects irregularities that are not covered by the
// fuzzy duplicate detection: exact duplicates, forgotten cheap
// subscriptions and internally inconsistent records.
type AnomalyReport struct {
	PriceOutliers             []*models.Subscription `json:"price_outliers"`
	ExactNameOwnerDups        []*models.Subscription `json:"exact_name_owner_duplicates"`
	Underutilized             []*models.Subscription `json:"underutilized"`
	InactiveWithFutureRenewal []*models.Subscription `json:"inactive_with_future_renewal"`
}

// DetectAnomalies runs all anomaly checks over the snapshot.
func (e *Engine) DetectAnomalies(subs []*models.Subscription) *AnomalyReport {
	report := &AnomalyReport{
		PriceOutliers:             []*models.Subscription{},
		ExactNameOwnerDups:        []*models.Subscription{},
		Underutilized:             []*models.Subscription{},
		InactiveWithFutureRenewal: []*models.Subscription{},
	}

	for _, s := range subs {
		if e.IsPriceAnomaly(subs, s) {
			report.PriceOutliers = append(report.PriceOutliers, s)
		}
		if s.IsActive(e.now) && s.MonthlyPrice <= underutilizedPriceCeiling {
			report.Underutilized = append(report.Underutilized, s)
		}
		// Inactive today but still carrying a future renewal date means
		// the record has not started yet.
		if !s.IsActive(e.now) && s.EndDate.After(e.now) {
			report.InactiveWithFutureRenewal = append(report.InactiveWithFutureRenewal, s)
		}
	}

	byKey := make(map[string][]*models.Subscription)
	for _, s := range subs {
		key := strings.ToLower(s.ServiceName) + "#" + strings.ToLower(s.OwnerName)
		byKey[key] = append(byKey[key], s)
	}
	for _, group := range byKey {
		if len(group) > 1 {
			report.ExactNameOwnerDups = append(report.ExactNameOwnerDups, group...)
		}
	}

	return report
}

// IsPriceAnomaly reports whether the subscription's price sits more
// than two standard deviations above the portfolio mean. Needs at
// least three records to be meaningful.
func (e *Engine) IsPriceAnomaly(subs []*models.Subscription, s *models.Subscription) bool {
	if len(subs) < 3 {
		return false
	}

	mean := 0.0
	for _, x := range subs {
		mean += x.MonthlyPrice
	}
	mean /= float64(len(subs))

	variance := 0.0
	for _, x := range subs {
		delta := x.MonthlyPrice - mean
		variance += delta * delta
	}
	variance /= float64(len(subs))

	return s.MonthlyPrice > mean+2*math.Sqrt(variance)
}
