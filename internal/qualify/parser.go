package qualify

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// fieldAliases maps each verdict field to the key names models have emitted
// for it across prompt revisions. Aliases are resolved once at parse time
// so business logic never sees the variants.
var fieldAliases = map[string][]string{
	"qualified":    {"qualified", "is_qualified", "is_fit", "fit"},
	"score":        {"confidence_score", "score", "confidence", "fit_score"},
	"company_type": {"company_type", "hardware_type", "category", "type"},
	"industry":     {"industry", "industry_label", "sector"},
	"reasoning":    {"reasoning", "analysis", "explanation", "rationale"},
	"signals":      {"key_signals", "signals", "positive_signals", "strengths"},
	"red_flags":    {"red_flags", "concerns", "negative_signals", "risks"},
	"headquarters": {"headquarters", "hq_location", "location", "hq"},
}

// recognizedKeys is the set of keys whose presence marks a JSON fragment as
// a verdict rather than some other object in the model's output.
var recognizedKeys = func() map[string]bool {
	keys := make(map[string]bool)
	for _, field := range []string{"qualified", "score", "reasoning"} {
		for _, alias := range fieldAliases[field] {
			keys[alias] = true
		}
	}
	return keys
}()

// ParseVerdict extracts a structured verdict from raw model output. The
// output may be pure JSON, JSON in markdown fences, JSON after
// chain-of-thought prose, or unparseable garbage. It never fails: the worst
// case is a flagged partial verdict, so a single malformed response cannot
// crash a batch run.
func ParseVerdict(raw string) model.Verdict {
	text := stripFences(raw)

	// Reasoning models place the final answer last: scan backward from the
	// last closing brace for the outermost object nearest the end.
	if span, ok := lastJSONObject(text); ok {
		if v, ok := verdictFromJSON(span); ok {
			return v
		}
	}

	// Forward scan: try every '{' in order, accept the first fragment that
	// parses and carries a recognized key.
	for _, span := range forwardJSONObjects(text) {
		if v, ok := verdictFromJSON(span); ok {
			return v
		}
	}

	// Targeted regex recovery of individual fields.
	if v, ok := verdictFromRegex(text); ok {
		return v
	}

	// Nothing recoverable: mid-range default echoing the response prefix.
	return model.Verdict{
		Qualified: false,
		Score:     5,
		Reasoning: "Unparseable model response: " + prefix(text, 200),
		RedFlags:  []string{"model response could not be parsed"},
		Partial:   true,
	}
}

// stripFences removes markdown code-fence markers around the payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "\n")
	text = strings.ReplaceAll(text, "```", "\n")
	return strings.TrimSpace(text)
}

// lastJSONObject finds the outermost {...} span nearest the end of the
// text by walking backward from the last '}' while tracking brace depth.
func lastJSONObject(text string) (string, bool) {
	end := strings.LastIndex(text, "}")
	if end < 0 {
		return "", false
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return text[i : end+1], true
			}
		}
	}
	return "", false
}

// forwardJSONObjects returns every balanced {...} span starting from each
// '{' occurrence, in document order.
func forwardJSONObjects(text string) []string {
	var spans []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		depth := 0
		for j := i; j < len(text); j++ {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					spans = append(spans, text[i:j+1])
					j = len(text)
				}
			}
		}
	}
	return spans
}

// verdictFromJSON parses a candidate span and builds a verdict when it is
// valid JSON containing at least one recognized verdict key.
func verdictFromJSON(span string) (model.Verdict, bool) {
	var rawMap map[string]any
	if err := json.Unmarshal([]byte(span), &rawMap); err != nil {
		return model.Verdict{}, false
	}
	found := false
	for key := range rawMap {
		if recognizedKeys[strings.ToLower(key)] {
			found = true
			break
		}
	}
	if !found {
		return model.Verdict{}, false
	}
	return buildVerdict(rawMap), true
}

// buildVerdict assembles a clamped verdict from a parsed JSON map,
// resolving field aliases.
func buildVerdict(rawMap map[string]any) model.Verdict {
	lowered := make(map[string]any, len(rawMap))
	for k, v := range rawMap {
		lowered[strings.ToLower(k)] = v
	}
	resolve := func(field string) (any, bool) {
		for _, alias := range fieldAliases[field] {
			if v, ok := lowered[alias]; ok && v != nil {
				return v, true
			}
		}
		return nil, false
	}

	v := model.Verdict{Score: 5}

	if raw, ok := resolve("score"); ok {
		if n, ok := toInt(raw); ok {
			v.Score = n
		}
	}
	v.Score = model.ClampScore(v.Score)

	if raw, ok := resolve("qualified"); ok {
		if b, ok := raw.(bool); ok {
			v.Qualified = b
		} else if s, ok := raw.(string); ok {
			v.Qualified = strings.EqualFold(s, "true") || strings.EqualFold(s, "yes")
		}
	} else {
		// Model omitted the flag: derive from the score.
		v.Qualified = v.Score >= 6
	}

	if raw, ok := resolve("company_type"); ok {
		v.CompanyType, _ = raw.(string)
	}
	if raw, ok := resolve("industry"); ok {
		v.Industry, _ = raw.(string)
	}
	if raw, ok := resolve("reasoning"); ok {
		v.Reasoning, _ = raw.(string)
	}
	if raw, ok := resolve("headquarters"); ok {
		v.HQLocation, _ = raw.(string)
	}
	if raw, ok := resolve("signals"); ok {
		v.Signals = toStringSlice(raw)
	}
	if raw, ok := resolve("red_flags"); ok {
		v.RedFlags = toStringSlice(raw)
	}

	return v
}

var (
	scoreFieldRe     = regexp.MustCompile(`(?i)"?(?:confidence_score|confidence|fit_score|score)"?\s*[:=]\s*"?([0-9]+(?:\.[0-9]+)?)`)
	typeFieldRe      = regexp.MustCompile(`(?i)"?(?:company_type|hardware_type|category)"?\s*[:=]\s*"([^"\n]+)"`)
	reasoningFieldRe = regexp.MustCompile(`(?i)"?reasoning"?\s*[:=]\s*"([^"\n]+)"`)
	qualifiedFieldRe = regexp.MustCompile(`(?i)"?(?:is_)?qualified"?\s*[:=]\s*(true|false)`)
)

// verdictFromRegex recovers individual fields straight from the raw text
// when no JSON fragment parsed. The result is flagged as partial.
func verdictFromRegex(text string) (model.Verdict, bool) {
	m := scoreFieldRe.FindStringSubmatch(text)
	if m == nil {
		return model.Verdict{}, false
	}
	score := 5
	if f, err := strconv.ParseFloat(m[1], 64); err == nil {
		score = model.ClampScore(int(f))
	}

	v := model.Verdict{
		Score:     score,
		Qualified: score >= 6,
		Partial:   true,
		RedFlags:  []string{"verdict partially parsed from malformed response"},
	}
	if qm := qualifiedFieldRe.FindStringSubmatch(text); qm != nil {
		v.Qualified = strings.EqualFold(qm[1], "true")
	}
	if tm := typeFieldRe.FindStringSubmatch(text); tm != nil {
		v.CompanyType = strings.TrimSpace(tm[1])
	}
	if rm := reasoningFieldRe.FindStringSubmatch(text); rm != nil {
		v.Reasoning = strings.TrimSpace(rm[1])
	}
	if v.Reasoning == "" {
		v.Reasoning = "Score recovered from malformed model response."
	}
	return v, true
}

func toInt(raw any) (int, bool) {
	switch n := raw.(type) {
	case float64:
		return int(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func toStringSlice(raw any) []string {
	switch vals := raw.(type) {
	case []any:
		var out []string
		for _, item := range vals {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(vals) == "" {
			return nil
		}
		return []string{vals}
	}
	return nil
}

func prefix(text string, n int) string {
	text = strings.TrimSpace(text)
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
