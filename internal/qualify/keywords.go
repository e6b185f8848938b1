package qualify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadscout/internal/model"
)

// KeywordConfig holds the fixed keyword lists and the empirically tuned
// scoring constants for the no-model fallback paths. The constants have no
// documented derivation; they are preserved as configuration rather than
// re-derived.
type KeywordConfig struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`

	// Rubric-fallback formula: score = min(10, max(1, matches*Weight+Base)).
	RubricMatchWeight int `yaml:"rubric_match_weight"`
	RubricBase        int `yaml:"rubric_base"`

	// Fixed-list formula bands over net = positives - 2*negatives.
	NetStrong   int `yaml:"net_strong"`   // net >= NetStrong  -> ScoreStrong, qualified
	NetModerate int `yaml:"net_moderate"` // net >= NetModerate -> ScoreModerate, qualified
	ScoreStrong   int `yaml:"score_strong"`
	ScoreModerate int `yaml:"score_moderate"`
	ScoreNeutral  int `yaml:"score_neutral"` // net >= 0, not qualified
	ScoreWeak     int `yaml:"score_weak"`    // net < 0, not qualified

	// Pre-check gate: >= PrecheckNegativeMin negative hits with zero
	// positive hits short-circuits to a rejection without a model call.
	PrecheckNegativeMin int `yaml:"precheck_negative_min"`
}

// DefaultKeywordConfig returns the production keyword lists and constants.
func DefaultKeywordConfig() KeywordConfig {
	return KeywordConfig{
		Positive: []string{
			"manufacturer", "manufacturing", "industrial", "equipment",
			"machinery", "automation", "engineering", "hardware", "oem",
			"fabrication", "distributor", "b2b", "enterprise", "systems",
			"components", "supplier",
		},
		Negative: []string{
			"blog", "recipes", "restaurant", "fashion", "travel", "casino",
			"gambling", "dating", "celebrity", "coupon", "lottery",
			"horoscope",
		},
		RubricMatchWeight:   2,
		RubricBase:          3,
		NetStrong:           5,
		NetModerate:         2,
		ScoreStrong:         8,
		ScoreModerate:       6,
		ScoreNeutral:        4,
		ScoreWeak:           2,
		PrecheckNegativeMin: 2,
	}
}

// LoadKeywordConfig reads keyword overrides from a YAML file, filling any
// zero-valued constants from the defaults.
func LoadKeywordConfig(path string) (KeywordConfig, error) {
	cfg := DefaultKeywordConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrap(err, "qualify: read keyword file")
	}
	var loaded KeywordConfig
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return cfg, eris.Wrap(err, "qualify: parse keyword file")
	}
	if len(loaded.Positive) > 0 {
		cfg.Positive = loaded.Positive
	}
	if len(loaded.Negative) > 0 {
		cfg.Negative = loaded.Negative
	}
	for dst, src := range map[*int]int{
		&cfg.RubricMatchWeight:   loaded.RubricMatchWeight,
		&cfg.RubricBase:          loaded.RubricBase,
		&cfg.NetStrong:           loaded.NetStrong,
		&cfg.NetModerate:         loaded.NetModerate,
		&cfg.ScoreStrong:         loaded.ScoreStrong,
		&cfg.ScoreModerate:       loaded.ScoreModerate,
		&cfg.ScoreNeutral:        loaded.ScoreNeutral,
		&cfg.ScoreWeak:           loaded.ScoreWeak,
		&cfg.PrecheckNegativeMin: loaded.PrecheckNegativeMin,
	} {
		if src != 0 {
			*dst = src
		}
	}
	return cfg, nil
}

// countHits counts case-insensitive keyword occurrences in the content.
// Each keyword counts at most once per document to keep a single repeated
// word from dominating the score.
func countHits(content string, keywords []string) (int, []string) {
	lower := strings.ToLower(content)
	var hits int
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits++
			matched = append(matched, kw)
		}
	}
	return hits, matched
}

// countOccurrences counts total keyword occurrences, used by the pre-check
// where repeated negative signals matter.
func countOccurrences(content string, keywords []string) int {
	lower := strings.ToLower(content)
	total := 0
	for _, kw := range keywords {
		total += strings.Count(lower, strings.ToLower(kw))
	}
	return total
}

// scoreAgainstRubric implements the dynamic-rubric fallback: count how many
// significant rubric words (length > 3) appear in the content and map the
// match count onto a confidence score.
func (k KeywordConfig) scoreAgainstRubric(rubric, content string) model.Verdict {
	lower := strings.ToLower(content)
	seen := make(map[string]bool)
	var matches int
	var matched []string
	for _, word := range strings.FieldsFunc(strings.ToLower(rubric), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		if strings.Contains(lower, word) {
			matches++
			matched = append(matched, word)
		}
	}

	score := model.ClampScore(matches*k.RubricMatchWeight + k.RubricBase)
	return model.Verdict{
		Qualified: score >= 6,
		Score:     score,
		Reasoning: "Keyword fallback: matched " + joinOr(matched, "no") + " rubric terms in site content (no model provider available).",
		Signals:   matched,
		RedFlags:  []string{"scored without model assistance"},
		Method:    "keyword",
	}
}

// scoreAgainstLists implements the fixed-list fallback banding over
// net = positives - 2*negatives.
func (k KeywordConfig) scoreAgainstLists(content string) model.Verdict {
	posHits, posMatched := countHits(content, k.Positive)
	negHits, negMatched := countHits(content, k.Negative)
	net := posHits - 2*negHits

	var score int
	var qualified bool
	switch {
	case net >= k.NetStrong:
		score, qualified = k.ScoreStrong, true
	case net >= k.NetModerate:
		score, qualified = k.ScoreModerate, true
	case net >= 0:
		score, qualified = k.ScoreNeutral, false
	default:
		score, qualified = k.ScoreWeak, false
	}

	v := model.Verdict{
		Qualified: qualified,
		Score:     model.ClampScore(score),
		Reasoning: "Keyword fallback: net signal from fixed industry keyword lists (no model provider available).",
		Signals:   posMatched,
		RedFlags:  []string{"scored without model assistance"},
		Method:    "keyword",
	}
	if len(negMatched) > 0 {
		v.RedFlags = append(v.RedFlags, "negative keywords present: "+strings.Join(negMatched, ", "))
	}
	return v
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
