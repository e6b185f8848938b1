package qualify

import (
	"fmt"
	"strings"
)

const verdictSystemPrompt = `You are a B2B lead-qualification analyst. You assess whether a company fits a target customer profile based on its website content. Respond with ONLY a valid JSON object, no prose before or after, matching exactly this schema:
{"qualified": <bool>, "confidence_score": <int 1-10>, "company_type": "<short label>", "industry": "<free text>", "reasoning": "<2-3 sentences>", "key_signals": ["<string>", ...], "red_flags": ["<string>", ...], "headquarters": "<city, region or null>"}`

const defaultCriteria = `Target profile: established B2B companies selling physical products or industrial services — manufacturers, OEMs, distributors, engineering and automation firms. Disqualify: consumer content sites, directories, blogs, agencies with no product, and companies that only resell consumer goods.`

// buildPrompt assembles the user prompt for one candidate. The rubric, when
// supplied by the caller, replaces the default criteria.
func buildPrompt(name, url, rubric, content string, hasScreenshot bool) string {
	criteria := defaultCriteria
	if strings.TrimSpace(rubric) != "" {
		criteria = "Target profile: " + rubric
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nCompany: %s\nWebsite: %s\n\n", criteria, name, url)
	if hasScreenshot {
		b.WriteString("A screenshot of the homepage is attached. Use it to confirm the company's visual positioning.\n\n")
	}
	if strings.TrimSpace(content) != "" {
		fmt.Fprintf(&b, "Website content:\n%s\n\n", content)
	} else {
		b.WriteString("No text content could be extracted; judge from the screenshot.\n\n")
	}
	b.WriteString("Score this company's fit against the target profile. Return only the JSON object.")
	return b.String()
}
