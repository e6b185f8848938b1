package model

// Verdict is the qualifier's structured fit assessment for one candidate.
// Created once per candidate per pipeline pass; immutable afterwards.
type Verdict struct {
	Qualified   bool     `json:"qualified"`
	Score       int      `json:"confidence_score"` // always clamped to [1,10]
	CompanyType string   `json:"company_type,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Reasoning   string   `json:"reasoning"`
	Signals     []string `json:"key_signals,omitempty"`
	RedFlags    []string `json:"red_flags,omitempty"`
	HQLocation  string   `json:"headquarters,omitempty"`

	// Partial marks verdicts recovered from an unparseable model response.
	Partial bool `json:"partial,omitempty"`

	// Method records which path produced the verdict ("vision", "text",
	// "secondary", "keyword", "crawl_failed").
	Method string `json:"method,omitempty"`
}

// ClampScore forces a confidence score into the valid [1,10] range.
func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// Tier is the three-level taxonomy derived from a verdict's score.
type Tier string

const (
	TierTop      Tier = "top"
	TierReview   Tier = "review"
	TierRejected Tier = "rejected"
)

// TierThresholds holds the two score cutoffs that partition verdicts into
// tiers. Values are configuration, not logic.
type TierThresholds struct {
	Top    int `json:"top"`
	Review int `json:"review"`
}

// DefaultTierThresholds matches the production cutoffs: 8+ is top, 4-7
// needs review, below 4 is rejected.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{Top: 8, Review: 4}
}

// TierFor derives the tier for a score. Pure and deterministic.
func (t TierThresholds) TierFor(score int) Tier {
	switch {
	case score >= t.Top:
		return TierTop
	case score >= t.Review:
		return TierReview
	default:
		return TierRejected
	}
}
