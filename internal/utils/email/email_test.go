package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avigne/subtrack/internal/analytics"
	"github.com/avigne/subtrack/internal/models"
)

func TestExpiryReminderContent(t *testing.T) {
	sub := models.NewSubscription("Netflix", "Alice", "Streaming", 12.99,
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	sub.Notes = "shared with family"

	subject, body := expiryReminderContent("alice", sub, 5)
	assert.Equal(t, "Netflix expires in 5 day(s)", subject)
	assert.Contains(t, body, "Dear alice,")
	assert.Contains(t, body, "Your Netflix subscription (12.99/month) ends on 2025-06-20.")
	assert.Contains(t, body, "Your notes: shared with family")

	subject, _ = expiryReminderContent("alice", sub, 0)
	assert.Equal(t, "Netflix expires today", subject)

	sub.Notes = ""
	_, body = expiryReminderContent("alice", sub, 5)
	assert.NotContains(t, body, "Your notes")
}

func TestMonthlyReportContent(t *testing.T) {
	report := &analytics.PortfolioReport{
		Stats: analytics.PortfolioStats{
			TotalSubscriptions: 4,
			ActiveCount:        3,
			TotalMonthlyCost:   62.97,
			HealthScore:        79,
		},
		PotentialSavings: 14.99,
		Recommendations: []string{
			"Save 14.99/month by cancelling 1 barely used subscription(s)",
		},
	}

	subject, body := monthlyReportContent("bob", report)
	assert.Equal(t, "Your monthly subscription report", subject)
	assert.Contains(t, body, "Dear bob,")
	assert.Contains(t, body, "Portfolio health: 79/100")
	assert.Contains(t, body, "Active subscriptions: 3 of 4")
	assert.Contains(t, body, "Total monthly cost: 62.97")
	assert.Contains(t, body, "Potential savings: 14.99/month")
	assert.Contains(t, body, "Save 14.99/month by cancelling")
}

func TestMonthlyReportContentSkipsEmptySections(t *testing.T) {
	report := &analytics.PortfolioReport{}
	_, body := monthlyReportContent("bob", report)
	assert.NotContains(t, body, "Potential savings")
	assert.NotContains(t, body, "Recommendations:")
}

func TestBudgetAlertContent(t *testing.T) {
	gym := models.NewSubscription("Gym", "Alice", "Fitness", 40,
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC))
	plan := &analytics.BudgetReductionPlan{
		CurrentMonthlyCost:       110,
		TargetMonthlyBudget:      80,
		RequiredSaving:           30,
		AchievedSaving:           40,
		TargetFeasible:           true,
		RecommendedCancellations: []*models.Subscription{gym},
	}

	subject, body := budgetAlertContent("alice", plan)
	assert.Equal(t, "Subscription spending exceeds your budget", subject)
	assert.Contains(t, body, "You currently spend 110.00/month against a budget of 80.00.")
	assert.Contains(t, body, "Cutting 30.00/month would bring you back under budget.")
	assert.Contains(t, body, "- Gym (40.00/month)")
	assert.NotContains(t, body, "Even cancelling everything")

	plan.TargetFeasible = false
	_, body = budgetAlertContent("alice", plan)
	assert.Contains(t, body, "Even cancelling everything would not reach the target.")
}
