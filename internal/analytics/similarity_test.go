package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Netflix", "netflix"},
		{"netflix ", "netflix"},
		{"NET FLIX", "netflix"},
		{"Café Médias", "cafemedias"},
		{"Disney+", "disney"},
		{"HBO-Max 2", "hbomax2"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeName(tt.in), "input %q", tt.in)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"netflix", "netflix", 0},
		{"netflix", "netflux", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, nameSimilarity("", ""))
	assert.Equal(t, 100.0, nameSimilarity("netflix", "netflix"))
	assert.Equal(t, 0.0, nameSimilarity("abc", "xyz"))
	// one edit across seven characters
	assert.InDelta(t, 85.71, nameSimilarity("netflix", "netflux"), 0.01)
}

func TestPriceSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"both free", 0, 0, 100},
		{"one free", 0, 10, 0},
		{"identical", 9.99, 9.99, 100},
		{"under five percent", 10, 10.4, 100},
		{"under ten percent", 10, 10.9, 80},
		{"under fifteen percent", 10, 11.4, 60},
		{"under twenty percent", 10, 11.9, 40},
		{"thirty percent apart", 10, 13, 70},
		{"wildly apart", 10, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priceSimilarity(tt.a, tt.b))
			assert.Equal(t, tt.want, priceSimilarity(tt.b, tt.a), "must be symmetric")
		})
	}
}

func TestCategoriesMatch(t *testing.T) {
	assert.True(t, categoriesMatch("Streaming", "streaming"))
	assert.True(t, categoriesMatch("Video Streaming", "Music Streaming"))
	assert.True(t, categoriesMatch("Cloud Storage", "Cloud Backup"))
	assert.False(t, categoriesMatch("Fitness", "Streaming"))
	assert.False(t, categoriesMatch("", "Streaming"))
}

func TestSimilaritySymmetric(t *testing.T) {
	e := NewEngine(testNow)
	a := sub("Netflix", 12.99, 3)
	b := sub("netflix ", 12.99, 40)
	c := sub("Gym Plus", 45, -1)
	c.Category = "Fitness"
	c.OwnerName = "Bob"

	assert.Equal(t, e.Similarity(a, b), e.Similarity(b, a))
	assert.Equal(t, e.Similarity(a, c), e.Similarity(c, a))
	assert.Equal(t, e.Similarity(b, c), e.Similarity(c, b))
}

func TestSimilarityWeights(t *testing.T) {
	e := NewEngine(testNow)

	t.Run("identical everything scores full", func(t *testing.T) {
		a := sub("Netflix", 12.99, 3)
		b := sub("Netflix", 12.99, 3)
		assert.Equal(t, 100.0, e.Similarity(a, b))
	})

	t.Run("case and whitespace variants still match", func(t *testing.T) {
		a := sub("Netflix", 12.99, 3)
		b := sub("netflix ", 12.99, 3)
		assert.Equal(t, 100.0, e.Similarity(a, b))
	})

	t.Run("different owner drops ten points", func(t *testing.T) {
		a := sub("Netflix", 12.99, 3)
		b := sub("Netflix", 12.99, 3)
		b.OwnerName = "Bob"
		assert.Equal(t, 90.0, e.Similarity(a, b))
	})

	t.Run("unrelated services stay under threshold", func(t *testing.T) {
		a := sub("Netflix", 12.99, 3)
		b := sub("Crossfit Box", 89, -1)
		b.Category = "Fitness"
		b.OwnerName = "Bob"
		assert.Less(t, e.Similarity(a, b), float64(similarityThreshold))
	})
}
