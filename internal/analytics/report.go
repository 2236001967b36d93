package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/avigne/subtrack/internal/models"
)

// highChurnThreshold marks subscriptions considered wasted spend.
const highChurnThreshold = 70

// PortfolioStats summarizes the portfolio at a glance.
type PortfolioStats struct {
	TotalSubscriptions int      `json:"total_subscriptions"`
	ActiveCount        int      `json:"active_count"`
	InactiveCount      int      `json:"inactive_count"`
	TotalMonthlyCost   float64  `json:"total_monthly_cost"`
	AverageMonthlyCost float64  `json:"average_monthly_cost"`
	HealthScore        float64  `json:"health_score"`
	Categories         []string `json:"categories"`
	HighChurnRiskCount int      `json:"high_churn_risk_count"`
}

// AdvancedMetrics carries the aggregate value indicators.
type AdvancedMetrics struct {
	AverageLifetimeValue float64 `json:"average_lifetime_value"`
	AverageRoi           float64 `json:"average_roi"`
	HighRiskCount        int     `json:"high_risk_count"`
}

// PortfolioReport is the full decision-support view assembled from all
// engine components.
type PortfolioReport struct {
	Stats            PortfolioStats         `json:"stats"`
	Metrics          AdvancedMetrics        `json:"metrics"`
	TopSpenders      []*models.Subscription `json:"top_spenders"`
	Unused           []*models.Subscription `json:"unused"`
	PotentialSavings float64                `json:"potential_savings"`
	DuplicateGroups  []DuplicateGroup       `json:"duplicate_groups"`
	Recommendations  []string               `json:"recommendations"`
	Forecast         *ForecastResult        `json:"forecast"`
}

// PortfolioHealth scores the overall portfolio on a 0-100 scale from
// the active ratio (40%), category diversification (30%) and the share
// of subscriptions still in use (30%). An empty portfolio scores 0.
func (e *Engine) PortfolioHealth(subs []*models.Subscription) float64 {
	if len(subs) == 0 {
		return 0
	}

	active := 0
	categories := make(map[string]bool)
	for _, s := range subs {
		if s.IsActive(e.now) {
			active++
		}
		categories[s.Category] = true
	}

	activationScore := float64(active) / float64(len(subs)) * 100 * 0.4
	diversificationScore := math.Min(float64(len(categories))*10, 100) * 0.3
	inactive := len(subs) - active
	inactivityScore := (1 - float64(inactive)/float64(len(subs))) * 100 * 0.3

	return math.Min(activationScore+diversificationScore+inactivityScore, 100)
}

// Stats computes the portfolio summary.
func (e *Engine) Stats(subs []*models.Subscription) PortfolioStats {
	stats := PortfolioStats{Categories: []string{}}
	if len(subs) == 0 {
		return stats
	}

	seen := make(map[string]bool)
	for _, s := range subs {
		stats.TotalSubscriptions++
		if s.IsActive(e.now) {
			stats.ActiveCount++
		}
		stats.TotalMonthlyCost += s.MonthlyPrice
		if !seen[s.Category] {
			seen[s.Category] = true
			stats.Categories = append(stats.Categories, s.Category)
		}
		if e.ChurnRisk(s) > highChurnThreshold {
			stats.HighChurnRiskCount++
		}
	}
	stats.InactiveCount = stats.TotalSubscriptions - stats.ActiveCount
	stats.TotalMonthlyCost = round2(stats.TotalMonthlyCost)
	stats.AverageMonthlyCost = round2(stats.TotalMonthlyCost / float64(stats.TotalSubscriptions))
	stats.HealthScore = round2(e.PortfolioHealth(subs))
	sort.Strings(stats.Categories)
	return stats
}

// Metrics computes the aggregate value indicators: average lifetime
// spend, average ROI and the number of high-risk subscriptions.
func (e *Engine) Metrics(subs []*models.Subscription) AdvancedMetrics {
	metrics := AdvancedMetrics{}
	if len(subs) == 0 {
		return metrics
	}

	ltv, roi := 0.0, 0.0
	for _, s := range subs {
		ltv += s.TotalCostToDate(e.now)
		roi += e.RoiScore(s)
		if e.ChurnRisk(s) > highChurnThreshold {
			metrics.HighRiskCount++
		}
	}
	metrics.AverageLifetimeValue = round2(ltv / float64(len(subs)))
	metrics.AverageRoi = round2(roi / float64(len(subs)))
	return metrics
}

// BuildReport assembles the consumable portfolio report: stats, top
// spenders, unused subscriptions, duplicate groups, recommendations
// and a six month forecast.
func (e *Engine) BuildReport(subs []*models.Subscription) *PortfolioReport {
	report := &PortfolioReport{
		Stats:           e.Stats(subs),
		Metrics:         e.Metrics(subs),
		TopSpenders:     []*models.Subscription{},
		Unused:          []*models.Subscription{},
		Recommendations: []string{},
	}

	active := make([]*models.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActive(e.now) {
			active = append(active, s)
		}
		if e.ChurnRisk(s) > highChurnThreshold {
			report.Unused = append(report.Unused, s)
			report.PotentialSavings += s.MonthlyPrice
		}
	}
	report.PotentialSavings = round2(report.PotentialSavings)

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].MonthlyPrice > active[j].MonthlyPrice
	})
	top := 3
	if len(active) < top {
		top = len(active)
	}
	report.TopSpenders = append(report.TopSpenders, active[:top]...)

	report.DuplicateGroups = e.DetectDuplicates(active)
	report.Recommendations = e.recommendations(subs, report)

	// A forecast over an empty portfolio is still well-defined: six
	// zero-filled periods.
	forecast, err := e.ForecastCosts(subs, 6)
	if err == nil {
		report.Forecast = forecast
	}

	return report
}

func (e *Engine) recommendations(subs []*models.Subscription, report *PortfolioReport) []string {
	recs := []string{}

	if len(report.Unused) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Save %.2f/month by cancelling %d barely used subscription(s)",
			report.PotentialSavings, len(report.Unused)))
	}

	for _, group := range report.DuplicateGroups {
		for _, sugg := range group.Suggestions {
			recs = append(recs, fmt.Sprintf(
				"Drop %s in favor of %s (saves %.2f/month)",
				sugg.Remove, sugg.Keep, sugg.PotentialSaving))
		}
	}

	expiring := 0
	for _, s := range subs {
		if days := s.DaysUntilExpiry(e.now); days > 0 && days < 30 {
			expiring++
		}
	}
	if expiring > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d subscription(s) expire within 30 days, decide on renewal", expiring))
	}

	for _, s := range subs {
		if e.IsPriceAnomaly(subs, s) {
			recs = append(recs, fmt.Sprintf(
				"%s is priced unusually high for this portfolio (%.2f/month)",
				s.ServiceName, s.MonthlyPrice))
		}
	}

	return recs
}
