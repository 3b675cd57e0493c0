package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExplicitCategoryIsAuthoritative(t *testing.T) {
	// Body full of business keywords must not override the marker.
	got := Classify("world", "Stocks", "market market revenue earnings investor")
	assert.Equal(t, "world", got)
}

func TestClassifyExplicitMapping(t *testing.T) {
	tests := []struct {
		explicit string
		want     string
	}{
		{"WORLD", "world"},
		{"Technology", "technology"},
		{"misc", GeneralCategory},
		{"sponsored", SponsoredCategory},
		{"weird-unknown-label", GeneralCategory},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.explicit, "", ""), "explicit %q", tt.explicit)
	}
}

func TestClassifyKeywordScoring(t *testing.T) {
	got := Classify("", "Markets slump on earnings", "Investors fled the stock exchange as revenue warnings mounted.")
	assert.Equal(t, "business", got)
}

func TestClassifyTitleWeighting(t *testing.T) {
	// One title hit (x3) must beat two body hits of another category.
	got := Classify("", "Software update", "the economy and the market were mentioned")
	assert.Equal(t, "technology", got)
}

func TestClassifyTieBreakByDeclarationOrder(t *testing.T) {
	// "global" scores world, "software" scores technology, one body hit
	// each: world is declared first and wins.
	got := Classify("", "", "a global rollout of new software")
	assert.Equal(t, "world", got)
}

func TestClassifyZeroScoreFallsBack(t *testing.T) {
	got := Classify("", "Gardening tips", "How to water your plants in summer.")
	assert.Equal(t, GeneralCategory, got)
}

func TestClassifyDeterministic(t *testing.T) {
	title, bodyText := "Chip makers rally", "The semiconductor market saw new startup entrants."
	first := Classify("", title, bodyText)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify("", title, bodyText))
	}
}
