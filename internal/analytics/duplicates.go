package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/avigne/subtrack/internal/models"
)

// GroupType classifies how close the members of a duplicate group are.
type GroupType string

const (
	ExactDuplicate GroupType = "ExactDuplicate"
	SimilarService GroupType = "SimilarService"
	Overlap        GroupType = "Overlap"
)

// similarityThreshold is the minimum pairwise score for two
// subscriptions to land in the same duplicate group.
const similarityThreshold = 60

// DuplicateGroup is a set of subscriptions that look redundant, with
// ranked suggestions for which ones to drop.
type DuplicateGroup struct {
	Members         []*models.Subscription    `json:"members"`
	TotalCost       float64                   `json:"total_cost"`
	SimilarityScore float64                   `json:"similarity_score"`
	GroupType       GroupType                 `json:"group_type"`
	Suggestions     []ConsolidationSuggestion `json:"suggestions"`
}

// ConsolidationSuggestion recommends dropping one subscription of a
// duplicate group in favor of another.
type ConsolidationSuggestion struct {
	Keep            string  `json:"keep"`
	Remove          string  `json:"remove"`
	PotentialSaving float64 `json:"potential_saving"`
	Reason          string  `json:"reason"`
	Confidence      float64 `json:"confidence"`
	Priority        int     `json:"priority"`
}

// DetectDuplicates groups subscriptions whose pairwise similarity
// exceeds the threshold. Each record appears in at most one group and
// every returned group has at least two members.
func (e *Engine) DetectDuplicates(subs []*models.Subscription) []DuplicateGroup {
	groups := []DuplicateGroup{}
	processed := make(map[string]bool, len(subs))

	for i, current := range subs {
		if processed[current.ID] {
			continue
		}
		members := []*models.Subscription{current}
		processed[current.ID] = true

		for _, other := range subs[i+1:] {
			if processed[other.ID] {
				continue
			}
			if e.Similarity(current, other) > similarityThreshold {
				members = append(members, other)
				processed[other.ID] = true
			}
		}

		if len(members) < 2 {
			continue
		}

		group := DuplicateGroup{Members: members}
		for _, m := range members {
			group.TotalCost += m.MonthlyPrice
		}
		group.SimilarityScore = e.groupSimilarity(members)
		group.GroupType = groupTypeFor(group.SimilarityScore)
		group.Suggestions = e.consolidationSuggestions(members, group.SimilarityScore)
		groups = append(groups, group)
	}

	return groups
}

// groupSimilarity is the mean pairwise similarity of the members.
func (e *Engine) groupSimilarity(members []*models.Subscription) float64 {
	if len(members) <= 1 {
		return 100
	}
	total, comparisons := 0.0, 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			total += e.Similarity(members[i], members[j])
			comparisons++
		}
	}
	return total / float64(comparisons)
}

func groupTypeFor(similarity float64) GroupType {
	switch {
	case similarity >= 85:
		return ExactDuplicate
	case similarity >= 70:
		return SimilarService
	default:
		return Overlap
	}
}

// ServiceValue ranks a subscription inside a duplicate group on a 0-10
// scale: recent use, low price and high priority make it worth keeping.
func (e *Engine) ServiceValue(s *models.Subscription) float64 {
	score := 5.0

	if days, used := s.DaysSinceLastUse(e.now); used {
		switch {
		case days < 7:
			score += 3
		case days < 30:
			score += 1
		case days > 60:
			score -= 3
		}
	}

	if s.MonthlyPrice < 10 {
		score += 2
	} else if s.MonthlyPrice > 25 {
		score -= 2
	}

	switch s.Priority {
	case models.Essential:
		score += 2
	case models.Luxury:
		score -= 1
	}

	return math.Max(0, math.Min(10, score))
}

// consolidationSuggestions proposes keeping the highest-value member
// and dropping each of the others.
func (e *Engine) consolidationSuggestions(members []*models.Subscription, groupSimilarity float64) []ConsolidationSuggestion {
	sorted := make([]*models.Subscription, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return e.ServiceValue(sorted[i]) > e.ServiceValue(sorted[j])
	})

	best := sorted[0]
	suggestions := make([]ConsolidationSuggestion, 0, len(sorted)-1)
	for i, toRemove := range sorted[1:] {
		priority := 10 - i
		if priority < 1 {
			priority = 1
		}
		suggestions = append(suggestions, ConsolidationSuggestion{
			Keep:            best.ServiceName,
			Remove:          toRemove.ServiceName,
			PotentialSaving: toRemove.MonthlyPrice,
			Reason:          e.removalReason(best, toRemove),
			Confidence:      groupSimilarity,
			Priority:        priority,
		})
	}
	return suggestions
}

func (e *Engine) removalReason(keep, remove *models.Subscription) string {
	if e.ServiceValue(keep) > e.ServiceValue(remove) {
		return fmt.Sprintf("%s offers better value", keep.ServiceName)
	}
	if keep.MonthlyPrice < remove.MonthlyPrice {
		return fmt.Sprintf("cheaper alternative: %s (%.2f/month)", keep.ServiceName, keep.MonthlyPrice)
	}
	if keep.LastUsedDate != nil && remove.LastUsedDate == nil {
		return fmt.Sprintf("%s is actually used, this one is not", keep.ServiceName)
	}
	return "redundant service, consolidation recommended"
}
