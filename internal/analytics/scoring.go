package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/avigne/subtrack/internal/models"
)

// Engine computes portfolio analytics over an immutable snapshot of
// subscription records. It holds no state beyond the reference time it
// was constructed with, never mutates its inputs and never retains
// references to them, so concurrent callers may each use their own
// Engine safely.
type Engine struct {
	now time.Time
}

// NewEngine returns an engine evaluating everything relative to now.
func NewEngine(now time.Time) *Engine {
	return &Engine{now: now}
}

// ScoreSet holds the per-subscription scores. Recomputed on every call,
// never persisted.
type ScoreSet struct {
	ValueScore     float64 `json:"value_score"`
	ChurnRisk      float64 `json:"churn_risk"`
	CostPerUse     float64 `json:"cost_per_use"`
	RoiScore       float64 `json:"roi_score"`
	UsageFrequency float64 `json:"usage_frequency"`
}

// Score derives the full score set for one subscription.
func (e *Engine) Score(s *models.Subscription) ScoreSet {
	return ScoreSet{
		ValueScore:     e.ValueScore(s),
		ChurnRisk:      e.ChurnRisk(s),
		CostPerUse:     e.CostPerUse(s),
		RoiScore:       e.RoiScore(s),
		UsageFrequency: e.UsageFrequency(s),
	}
}

// UsageFrequency estimates uses per month from the recency of the last
// observed use. Never-used subscriptions score 0.
func (e *Engine) UsageFrequency(s *models.Subscription) float64 {
	days, used := s.DaysSinceLastUse(e.now)
	if !used {
		return 0
	}
	switch {
	case days < 7:
		return 20
	case days < 30:
		return 10
	case days < 60:
		return 5
	default:
		return 1
	}
}

// EngagementMultiplier boosts or dampens the value score based on how
// fresh the last use is. Never-used subscriptions get 0.5.
func (e *Engine) EngagementMultiplier(s *models.Subscription) float64 {
	days, used := s.DaysSinceLastUse(e.now)
	if !used {
		return 0.5
	}
	switch {
	case days < 3:
		return 1.5
	case days < 7:
		return 1.2
	case days < 14:
		return 1.0
	default:
		return 0.7
	}
}

// ValueScore is the heuristic ratio of usage intensity to price.
// Above 5 is excellent, 2-5 good, below 2 worth reconsidering.
func (e *Engine) ValueScore(s *models.Subscription) float64 {
	if s.MonthlyPrice == 0 {
		return 0
	}
	score := e.UsageFrequency(s) * 10 * e.EngagementMultiplier(s) / s.MonthlyPrice
	return round2(score)
}

// ChurnRisk estimates how likely the subscription is to be cancelled or
// wasted, on a 0-100 scale. Four additive factors: inactivity (max 40),
// poor value (max 30), low priority (max 20) and imminent expiry (10).
func (e *Engine) ChurnRisk(s *models.Subscription) float64 {
	risk := 0.0

	days, used := s.DaysSinceLastUse(e.now)
	switch {
	case !used:
		risk += 40
	case days > 60:
		risk += 40
	case days > 30:
		risk += 25
	case days > 14:
		risk += 10
	}

	value := e.ValueScore(s)
	switch {
	case value < 1:
		risk += 30
	case value < 2:
		risk += 20
	case value < 3:
		risk += 10
	}

	switch s.Priority {
	case models.Luxury:
		risk += 20
	case models.Optional:
		risk += 10
	}

	if s.DaysUntilExpiry(e.now) < 30 {
		risk += 10
	}

	return math.Min(100, round2(risk))
}

// CostPerUse returns the monthly price spread over the estimated number
// of uses. With no observed usage the full price is the cost per use.
func (e *Engine) CostPerUse(s *models.Subscription) float64 {
	freq := e.UsageFrequency(s)
	if freq == 0 {
		return s.MonthlyPrice
	}
	return round2(s.MonthlyPrice / freq)
}

// RoiScore combines value and usage against churn risk into a 0-100
// return-on-investment indicator.
func (e *Engine) RoiScore(s *models.Subscription) float64 {
	churn := e.ChurnRisk(s)
	if churn >= 100 {
		return 0
	}
	return math.Min(e.ValueScore(s)*e.UsageFrequency(s)/(100-churn+1), 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// checkRecords rejects malformed input before any partial computation:
// prices must be non-negative and both dates must be set.
func checkRecords(subs []*models.Subscription) error {
	for _, s := range subs {
		if s.MonthlyPrice < 0 {
			return fmt.Errorf("record %s has a negative monthly price", s.ID)
		}
		if s.StartDate.IsZero() || s.EndDate.IsZero() {
			return fmt.Errorf("record %s is missing its start or end date", s.ID)
		}
	}
	return nil
}
