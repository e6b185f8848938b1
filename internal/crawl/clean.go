package crawl

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/unicode/norm"
)

// ExtractText reduces an HTML document to plaintext suitable for the
// qualifier: boilerplate elements removed, entities decoded by the parser,
// whitespace collapsed, NFC normalized.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, iframe, svg, nav, footer, form").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return CleanText(text)
}

// CleanText collapses whitespace and normalizes the text to NFC.
func CleanText(text string) string {
	text = norm.NFC.String(text)

	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// DetectLanguage returns the ISO 639-1 code of the dominant language, or ""
// when the text is too short for trigram detection to mean anything.
func DetectLanguage(text string) string {
	if len(text) < 50 {
		return ""
	}
	return whatlanggo.Detect(text).Lang.Iso6391()
}

// sentenceEnders terminate a sentence for truncation purposes.
var sentenceEnders = []string{". ", ".\n", "! ", "!\n", "? ", "?\n"}

// Truncate caps text at max characters, preferring to cut at the sentence
// boundary nearest the cap when one falls within the last 15% of it.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	// Back up to a rune boundary so the hard cut never splits a multi-byte
	// character.
	limit := max
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := text[:limit]

	best := -1
	for _, end := range sentenceEnders {
		if idx := strings.LastIndex(cut, end); idx > best {
			best = idx + len(end) - 1
		}
	}
	// Only honor the boundary when it isn't too far before the hard limit.
	if best > 0 && best >= max-max*15/100 {
		return strings.TrimSpace(cut[:best])
	}
	return strings.TrimSpace(cut)
}
