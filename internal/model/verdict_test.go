package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below range", 0, 1},
		{"negative", -3, 1},
		{"lower bound", 1, 1},
		{"mid range", 6, 6},
		{"upper bound", 10, 10},
		{"above range", 15, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampScore(tt.in))
		})
	}
}

func TestTierFor(t *testing.T) {
	th := TierThresholds{Top: 8, Review: 4}

	tests := []struct {
		score int
		want  Tier
	}{
		{10, TierTop},
		{8, TierTop},
		{7, TierReview},
		{5, TierReview},
		{4, TierReview},
		{3, TierRejected},
		{1, TierRejected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.TierFor(tt.score), "score %d", tt.score)
	}
}

func TestTierFor_Deterministic(t *testing.T) {
	th := DefaultTierThresholds()
	for score := 1; score <= 10; score++ {
		first := th.TierFor(score)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, th.TierFor(score))
		}
	}
}

func TestContentFromSnippet(t *testing.T) {
	c := ContentFromSnippet("https://acme.com", "Industrial sensors and controls.")
	assert.True(t, c.Success)
	assert.True(t, c.HasText())
	assert.False(t, c.HasScreenshot())
	assert.Equal(t, "search", c.Source)

	empty := ContentFromSnippet("https://acme.com", "   ")
	assert.False(t, empty.Success)
}

func TestFailedContent(t *testing.T) {
	c := FailedContent("https://acme.com", "connection timed out")
	assert.False(t, c.Success)
	assert.Equal(t, "connection timed out", c.Error)
	assert.False(t, c.HasText())
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "acme.com", DomainOf("https://www.acme.com/about"))
	assert.Equal(t, "acme.io", DomainOf("http://acme.io"))
	assert.Equal(t, "", DomainOf("not a url"))
}

func TestCandidateDisplayName(t *testing.T) {
	assert.Equal(t, "Acme", Candidate{Name: "Acme", Domain: "acme.com"}.DisplayName())
	assert.Equal(t, "acme.com", Candidate{Domain: "acme.com"}.DisplayName())
	assert.Equal(t, "https://acme.com", Candidate{URL: "https://acme.com"}.DisplayName())
}
