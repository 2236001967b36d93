package analytics

import (
	"fmt"
	"sort"

	"github.com/avigne/subtrack/internal/models"
)

// BudgetReductionPlan lists the cancellations needed to bring the
// monthly spend down to a target budget.
type BudgetReductionPlan struct {
	CurrentMonthlyCost       float64                `json:"current_monthly_cost"`
	TargetMonthlyBudget      float64                `json:"target_monthly_budget"`
	RequiredSaving           float64                `json:"required_saving"`
	AchievedSaving           float64                `json:"achieved_saving"`
	TargetFeasible           bool                   `json:"target_feasible"`
	RecommendedCancellations []*models.Subscription `json:"recommended_cancellations"`
}

// PlanBudgetReduction greedily selects active subscriptions to cancel,
// worst value score first, until the saving closes the gap between the
// current total and the target. Essential subscriptions are not
// excluded outright: their high scores protect them indirectly, so
// callers wanting a hard guarantee should filter them out beforehand.
func (e *Engine) PlanBudgetReduction(subs []*models.Subscription, target float64) (*BudgetReductionPlan, error) {
	if target < 0 {
		return nil, fmt.Errorf("budget target cannot be negative, got %.2f", target)
	}
	if err := checkRecords(subs); err != nil {
		return nil, err
	}

	active := make([]*models.Subscription, 0, len(subs))
	total := 0.0
	for _, s := range subs {
		if s.IsActive(e.now) {
			active = append(active, s)
			total += s.MonthlyPrice
		}
	}

	plan := &BudgetReductionPlan{
		CurrentMonthlyCost:       round2(total),
		TargetMonthlyBudget:      target,
		TargetFeasible:           true,
		RecommendedCancellations: []*models.Subscription{},
	}

	if total <= target {
		return plan, nil
	}

	plan.RequiredSaving = round2(total - target)

	sort.SliceStable(active, func(i, j int) bool {
		return e.ValueScore(active[i]) < e.ValueScore(active[j])
	})

	achieved := 0.0
	for _, s := range active {
		if achieved >= plan.RequiredSaving {
			break
		}
		plan.RecommendedCancellations = append(plan.RecommendedCancellations, s)
		achieved += s.MonthlyPrice
	}

	plan.AchievedSaving = round2(achieved)
	plan.TargetFeasible = plan.AchievedSaving >= plan.RequiredSaving
	return plan, nil
}
