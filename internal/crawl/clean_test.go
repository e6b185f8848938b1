package crawl

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractTextStripsBoilerplate(t *testing.T) {
	doc := docFrom(t, `<html><head><title>Acme</title>
		<script>var x = 1;</script><style>body{}</style></head>
		<body>
		<nav>Home About Contact</nav>
		<h1>Acme Industrial Supply</h1>
		<p>Wholesale distributor of hydraulic   fittings.</p>
		<footer>Copyright 2026</footer>
		</body></html>`)

	text := ExtractText(doc)
	assert.Contains(t, text, "Acme Industrial Supply")
	assert.Contains(t, text, "Wholesale distributor of hydraulic fittings.")
	assert.NotContains(t, text, "var x = 1")
	assert.NotContains(t, text, "Copyright 2026")
	assert.NotContains(t, text, "Home About Contact")
}

func TestExtractTextFallsBackWithoutBody(t *testing.T) {
	doc := docFrom(t, `<div>bare fragment content</div>`)
	assert.Contains(t, ExtractText(doc), "bare fragment content")
}

func TestCleanText(t *testing.T) {
	in := "  Acme   Corp  \n\n\n  makes\tthings  \n"
	assert.Equal(t, "Acme Corp\nmakes things", CleanText(in))
}

func TestDetectLanguage(t *testing.T) {
	english := "We manufacture and distribute industrial equipment for factories " +
		"across the country. Our warehouse carries thousands of parts and our " +
		"team ships most orders on the same business day they are placed."
	assert.Equal(t, "en", DetectLanguage(english))

	assert.Empty(t, DetectLanguage("too short"))
}

func TestTruncate(t *testing.T) {
	t.Run("under cap unchanged", func(t *testing.T) {
		assert.Equal(t, "short", Truncate("short", 100))
	})

	t.Run("cuts at sentence boundary near cap", func(t *testing.T) {
		text := "First sentence here. Second sentence follows. " + strings.Repeat("x", 100)
		out := Truncate(text, 50)
		assert.Equal(t, "First sentence here. Second sentence follows.", out)
	})

	t.Run("hard cut when no boundary near cap", func(t *testing.T) {
		text := strings.Repeat("a", 200)
		out := Truncate(text, 80)
		assert.Len(t, out, 80)
	})

	t.Run("never splits a rune", func(t *testing.T) {
		text := strings.Repeat("é", 100)
		out := Truncate(text, 81)
		assert.True(t, utf8.ValidString(out))
		assert.Len(t, out, 80)
	})

	t.Run("ignores boundary far before cap", func(t *testing.T) {
		text := "Hi. " + strings.Repeat("b", 200)
		out := Truncate(text, 100)
		assert.Len(t, out, 100)
	})
}
