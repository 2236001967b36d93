package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avigne/subtrack/internal/models"
)

func TestPlanBudgetReductionRejectsNegativeTarget(t *testing.T) {
	e := NewEngine(testNow)
	_, err := e.PlanBudgetReduction(nil, -1)
	assert.Error(t, err)
}

func TestPlanBudgetReductionRejectsMalformedRecords(t *testing.T) {
	e := NewEngine(testNow)
	bad := sub("Broken", 10, 3)
	bad.StartDate = time.Time{}

	_, err := e.PlanBudgetReduction([]*models.Subscription{bad}, 50)
	assert.Error(t, err)
}

func TestPlanBudgetReductionAlreadyFeasible(t *testing.T) {
	e := NewEngine(testNow)
	subs := []*models.Subscription{sub("Netflix", 12.99, 3), sub("Spotify", 9.99, 1)}

	plan, err := e.PlanBudgetReduction(subs, 50)
	require.NoError(t, err)

	assert.Zero(t, plan.RequiredSaving)
	assert.Zero(t, plan.AchievedSaving)
	assert.True(t, plan.TargetFeasible)
	assert.Empty(t, plan.RecommendedCancellations)
	assert.InDelta(t, 22.98, plan.CurrentMonthlyCost, 0.001)
}

func TestPlanBudgetReductionEmptyInput(t *testing.T) {
	e := NewEngine(testNow)
	plan, err := e.PlanBudgetReduction(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, plan.RequiredSaving)
	assert.True(t, plan.TargetFeasible)
	assert.Empty(t, plan.RecommendedCancellations)
}

func TestPlanBudgetReductionGreedyWorstValueFirst(t *testing.T) {
	e := NewEngine(testNow)
	good := sub("Netflix", 20, 1)   // high value score
	poor := sub("Forgotten Box", 40, -1) // never used, value 0
	mid := sub("Gym", 40, 45)       // stale, low value

	plan, err := e.PlanBudgetReduction([]*models.Subscription{good, poor, mid}, 60)
	require.NoError(t, err)

	assert.Equal(t, 40.0, plan.RequiredSaving)
	require.NotEmpty(t, plan.RecommendedCancellations)
	assert.Equal(t, "Forgotten Box", plan.RecommendedCancellations[0].ServiceName)
	assert.True(t, plan.TargetFeasible)
	assert.GreaterOrEqual(t, plan.AchievedSaving, plan.RequiredSaving)
	// One cancellation of 40 closes the 40 gap; the well-used service stays.
	assert.Len(t, plan.RecommendedCancellations, 1)
}

func TestPlanBudgetReductionScenarioFromPortfolio(t *testing.T) {
	e := NewEngine(testNow)
	subs := []*models.Subscription{
		sub("A", 30, -1),
		sub("B", 30, 80),
		sub("C", 40, 1),
	}

	plan, err := e.PlanBudgetReduction(subs, 60)
	require.NoError(t, err)

	// Total 100, target 60.
	assert.Equal(t, 40.0, plan.RequiredSaving)
	assert.GreaterOrEqual(t, plan.AchievedSaving, 40.0)
	assert.True(t, plan.TargetFeasible)
}

func TestPlanBudgetReductionZeroTarget(t *testing.T) {
	e := NewEngine(testNow)
	subs := []*models.Subscription{sub("Only One", 10, 3)}

	plan, err := e.PlanBudgetReduction(subs, 0)
	require.NoError(t, err)

	// Cancelling the sole subscription closes the full gap.
	assert.Equal(t, 10.0, plan.RequiredSaving)
	assert.Equal(t, 10.0, plan.AchievedSaving)
	assert.True(t, plan.TargetFeasible)
	require.Len(t, plan.RecommendedCancellations, 1)
}

func TestPlanBudgetReductionIgnoresInactive(t *testing.T) {
	e := NewEngine(testNow)
	active := sub("Active", 50, -1)
	expired := models.NewSubscription("Expired", "Alice", "News", 50,
		testNow.AddDate(-2, 0, 0), testNow.AddDate(0, -1, 0))

	plan, err := e.PlanBudgetReduction([]*models.Subscription{active, expired}, 20)
	require.NoError(t, err)

	assert.Equal(t, 50.0, plan.CurrentMonthlyCost)
	require.Len(t, plan.RecommendedCancellations, 1)
	assert.Equal(t, "Active", plan.RecommendedCancellations[0].ServiceName)
}
