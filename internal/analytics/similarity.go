package analytics

import (
	"math"
	"strings"

	"github.com/avigne/subtrack/internal/models"
)

// Pairwise similarity weights (out of 100).
const (
	nameWeight     = 40.0
	priceWeight    = 30.0
	categoryWeight = 20.0
	ownerWeight    = 10.0
)

var accentReplacer = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"ï", "i", "î", "i",
	"ô", "o", "ö", "o",
	"û", "u", "ü", "u",
	"ç", "c",
)

// normalizeName lowercases a service name, strips accents and drops
// everything that is not a letter or digit.
func normalizeName(s string) string {
	s = accentReplacer.Replace(strings.ToLower(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// levenshtein returns the edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// nameSimilarity converts the edit distance between two normalized
// names into a 0-100 similarity.
func nameSimilarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	sim := (1 - float64(levenshtein(a, b))/float64(maxLen)) * 100
	return math.Max(0, math.Min(100, sim))
}

// priceSimilarity compares two monthly prices on a 0-100 scale. Full
// credit under 5% relative difference, degrading step-wise beyond.
func priceSimilarity(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 100
	}
	if a == 0 || b == 0 {
		return 0
	}
	lo, hi := math.Min(a, b), math.Max(a, b)
	pctDiff := (hi - lo) / lo * 100
	switch {
	case pctDiff < 5:
		return 100
	case pctDiff < 10:
		return 80
	case pctDiff < 15:
		return 60
	case pctDiff < 20:
		return 40
	default:
		return math.Max(0, 100-pctDiff)
	}
}

// categoriesMatch reports whether two categories are equivalent, either
// exactly or through a small set of synonym families.
func categoriesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.EqualFold(a, b) {
		return true
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, family := range []string{"stream", "music", "cloud"} {
		if strings.Contains(la, family) && strings.Contains(lb, family) {
			return true
		}
	}
	return false
}

// Similarity scores how alike two subscriptions are on a 0-100 scale,
// weighting name 40%, price 30%, category 20% and owner 10%.
// Symmetric: Similarity(a, b) == Similarity(b, a).
func (e *Engine) Similarity(a, b *models.Subscription) float64 {
	score := nameSimilarity(normalizeName(a.ServiceName), normalizeName(b.ServiceName)) / 100 * nameWeight
	score += priceSimilarity(a.MonthlyPrice, b.MonthlyPrice) / 100 * priceWeight
	if categoriesMatch(a.Category, b.Category) {
		score += categoryWeight
	}
	if a.OwnerName != "" && strings.EqualFold(a.OwnerName, b.OwnerName) {
		score += ownerWeight
	}
	return score
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
