package analytics

import (
	"math"

	"github.com/avigne/subtrack/internal/models"
)

// SegmentLabel names one of the three fixed portfolio tiers.
type SegmentLabel string

const (
	// CheapWellUsed groups low-price subscriptions with healthy usage.
	CheapWellUsed SegmentLabel = "CheapWellUsed"
	// BalancedTier groups subscriptions with middling price and usage.
	BalancedTier SegmentLabel = "Balanced"
	// ExpensiveAtRisk groups high-price subscriptions with poor usage
	// or high churn risk.
	ExpensiveAtRisk SegmentLabel = "ExpensiveAtRisk"
)

// Cluster is one portfolio segment: its centroid in the normalized
// (price, usage, churn) feature space and the assigned members.
type Cluster struct {
	Label    SegmentLabel           `json:"label"`
	Centroid [3]float64             `json:"centroid"`
	Members  []*models.Subscription `json:"members"`
}

const kmeansIterations = 10

// Anchor seeds for the three tiers: cheap & well-used, balanced,
// expensive & risky. Features are roughly normalized to [0,1].
var segmentSeeds = [3][3]float64{
	{0.1, 0.8, 0.2},
	{0.5, 0.5, 0.5},
	{1.0, 0.2, 0.8},
}

var segmentLabels = [3]SegmentLabel{CheapWellUsed, BalancedTier, ExpensiveAtRisk}

// SegmentPortfolio clusters the subscriptions into exactly three tiers
// with a fixed-iteration k-means over (price/100, usage/20, churn/100).
// The heuristic always terminates; it is not a general-purpose
// clustering and makes no stability guarantee on ties.
func (e *Engine) SegmentPortfolio(subs []*models.Subscription) []Cluster {
	features := make([][3]float64, len(subs))
	for i, s := range subs {
		features[i] = [3]float64{
			s.MonthlyPrice / 100,
			e.UsageFrequency(s) / 20,
			e.ChurnRisk(s) / 100,
		}
	}

	centroids := segmentSeeds
	assignments := make([]int, len(subs))

	for iter := 0; iter < kmeansIterations; iter++ {
		for i := range features {
			assignments[i] = nearestCentroid(features[i], centroids)
		}

		// Recompute centroids as member means. Empty clusters keep
		// their previous centroid so no NaN can appear.
		var sums [3][3]float64
		var counts [3]int
		for i, c := range assignments {
			for d := 0; d < 3; d++ {
				sums[c][d] += features[i][d]
			}
			counts[c]++
		}
		for c := 0; c < 3; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < 3; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	clusters := make([]Cluster, 3)
	for c := 0; c < 3; c++ {
		clusters[c] = Cluster{
			Label:    segmentLabels[c],
			Centroid: centroids[c],
			Members:  []*models.Subscription{},
		}
	}
	for i, s := range subs {
		c := assignments[i]
		clusters[c].Members = append(clusters[c].Members, s)
	}
	return clusters
}

func nearestCentroid(point [3]float64, centroids [3][3]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for c := 0; c < 3; c++ {
		dist := 0.0
		for d := 0; d < 3; d++ {
			delta := point[d] - centroids[c][d]
			dist += delta * delta
		}
		if dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}
