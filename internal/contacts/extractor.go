// Package contacts extracts people and reachability signals from crawled
// site text during enrichment. Regex extraction always runs; a model pass
// layers names and titles on top when a provider is configured.
package contacts

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/llm"
	"github.com/sells-group/leadscout/internal/model"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}`)
	linkRe  = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/(?:in|company)/[a-zA-Z0-9\-_%]+`)
)

// junkEmailPrefixes are addresses that never belong to a person.
var junkEmailPrefixes = []string{"noreply@", "no-reply@", "donotreply@", "example@"}

// Extractor pulls contacts out of page text.
type Extractor struct {
	provider llm.Provider
}

// New builds an Extractor. provider may be nil, in which case only the
// regex pass runs.
func New(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract returns the contacts found in text, deduplicated, emails first.
func (e *Extractor) Extract(ctx context.Context, companyName, text string) []model.Contact {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	byEmail := make(map[string]*model.Contact)
	var out []model.Contact

	for _, email := range dedupe(emailRe.FindAllString(text, -1)) {
		lower := strings.ToLower(email)
		if isJunkEmail(lower) {
			continue
		}
		c := model.Contact{Email: lower}
		byEmail[lower] = &c
		out = append(out, c)
	}

	phones := dedupe(phoneRe.FindAllString(text, -1))
	links := dedupe(linkRe.FindAllString(text, -1))

	// Loose phones and profile links become standalone contacts when
	// there is no email to hang them on.
	if len(out) == 1 {
		if len(phones) > 0 {
			out[0].Phone = strings.TrimSpace(phones[0])
			phones = phones[1:]
		}
		if len(links) > 0 {
			out[0].LinkedInURL = links[0]
			links = links[1:]
		}
	}
	for _, p := range phones {
		out = append(out, model.Contact{Phone: strings.TrimSpace(p)})
	}
	for _, l := range links {
		out = append(out, model.Contact{LinkedInURL: l})
	}

	if e.provider != nil {
		out = e.modelPass(ctx, companyName, text, out, byEmail)
	}
	return out
}

const extractSystemPrompt = `You extract contact people from company website text.
Respond with only a JSON array. Each element: {"name": "...", "title": "...", "email": "...", "phone": ""}.
Use empty strings for unknown fields. Do not invent people.`

func (e *Extractor) modelPass(ctx context.Context, companyName, text string, regexOut []model.Contact, byEmail map[string]*model.Contact) []model.Contact {
	resp, err := e.provider.Submit(ctx, llm.Request{
		System:    extractSystemPrompt,
		Prompt:    "Company: " + companyName + "\n\nPage text:\n" + text,
		MaxTokens: 1024,
	})
	if err != nil {
		zap.L().Debug("contacts: model pass failed", zap.Error(err))
		return regexOut
	}

	var parsed []model.Contact
	if err := json.Unmarshal([]byte(stripFences(resp.AnswerText())), &parsed); err != nil {
		zap.L().Debug("contacts: unparseable model output", zap.Error(err))
		return regexOut
	}

	for _, c := range parsed {
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		if c.Name == "" && c.Email == "" {
			continue
		}
		// Merge names and titles onto the regex-found email contact
		// rather than duplicating it.
		if c.Email != "" {
			if existing, ok := byEmail[c.Email]; ok {
				existing.Name = c.Name
				existing.Title = c.Title
				for i := range regexOut {
					if regexOut[i].Email == c.Email {
						regexOut[i].Name = c.Name
						regexOut[i].Title = c.Title
					}
				}
				continue
			}
		}
		regexOut = append(regexOut, c)
	}
	return regexOut
}

func isJunkEmail(email string) bool {
	for _, p := range junkEmailPrefixes {
		if strings.HasPrefix(email, p) {
			return true
		}
	}
	return strings.HasSuffix(email, ".png") || strings.HasSuffix(email, ".jpg")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
