package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avigne/subtrack/internal/models"
)

func TestIsPriceAnomaly(t *testing.T) {
	e := NewEngine(testNow)

	t.Run("needs at least three records", func(t *testing.T) {
		a := sub("A", 5, 3)
		b := sub("B", 500, 3)
		assert.False(t, e.IsPriceAnomaly([]*models.Subscription{a, b}, b))
	})

	t.Run("flags the far outlier", func(t *testing.T) {
		subs := []*models.Subscription{
			sub("A", 10, 3),
			sub("B", 10, 3),
			sub("C", 10, 3),
			sub("D", 10, 3),
			sub("E", 10, 3),
			sub("Enterprise Suite", 200, 3),
		}
		// mean 41.67, stddev 70.8: only the 200 clears mean + 2 sigma.
		assert.True(t, e.IsPriceAnomaly(subs, subs[5]))
		for _, s := range subs[:5] {
			assert.False(t, e.IsPriceAnomaly(subs, s))
		}
	})

	t.Run("uniform prices have no outlier", func(t *testing.T) {
		subs := []*models.Subscription{sub("A", 15, 3), sub("B", 15, 3), sub("C", 15, 3)}
		for _, s := range subs {
			assert.False(t, e.IsPriceAnomaly(subs, s))
		}
	})
}

func TestDetectAnomaliesEmpty(t *testing.T) {
	e := NewEngine(testNow)
	report := e.DetectAnomalies(nil)
	require.NotNil(t, report)
	assert.Empty(t, report.PriceOutliers)
	assert.Empty(t, report.ExactNameOwnerDups)
	assert.Empty(t, report.Underutilized)
	assert.Empty(t, report.InactiveWithFutureRenewal)
}

func TestDetectAnomaliesExactNameOwnerDuplicates(t *testing.T) {
	e := NewEngine(testNow)
	a := sub("Netflix", 12.99, 3)
	b := sub("NETFLIX", 17.99, 40) // same service, same owner, different tier
	c := sub("Netflix", 12.99, 3)
	c.OwnerName = "Bob"

	report := e.DetectAnomalies([]*models.Subscription{a, b, c})

	require.Len(t, report.ExactNameOwnerDups, 2)
	ids := []string{report.ExactNameOwnerDups[0].ID, report.ExactNameOwnerDups[1].ID}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
	assert.NotContains(t, ids, c.ID, "a different owner is not a duplicate")
}

func TestDetectAnomaliesUnderutilized(t *testing.T) {
	e := NewEngine(testNow)
	cheap := sub("Old Domain", 0.99, -1)
	normal := sub("Netflix", 12.99, 3)
	expiredCheap := models.NewSubscription("Dead Trial", "Alice", "News", 0.5,
		testNow.AddDate(-2, 0, 0), testNow.AddDate(0, -1, 0))

	report := e.DetectAnomalies([]*models.Subscription{cheap, normal, expiredCheap})

	require.Len(t, report.Underutilized, 1)
	assert.Equal(t, cheap.ID, report.Underutilized[0].ID, "only active cheap records count")
}

func TestDetectAnomaliesInactiveWithFutureRenewal(t *testing.T) {
	e := NewEngine(testNow)
	// Not yet started: inactive today while the renewal date is still ahead.
	pending := models.NewSubscription("Prepaid Box", "Alice", "Streaming", 9.99,
		testNow.AddDate(0, 1, 0), testNow.AddDate(1, 0, 0))
	running := sub("Netflix", 12.99, 3)

	report := e.DetectAnomalies([]*models.Subscription{pending, running})

	require.Len(t, report.InactiveWithFutureRenewal, 1)
	assert.Equal(t, pending.ID, report.InactiveWithFutureRenewal[0].ID)

	// A genuinely expired record is not flagged.
	expired := models.NewSubscription("Old Mag", "Alice", "News", 5,
		testNow.AddDate(-2, 0, 0), testNow.AddDate(0, -1, 0))
	report = e.DetectAnomalies([]*models.Subscription{expired, running})
	assert.Empty(t, report.InactiveWithFutureRenewal)
}
