package contacts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/llm"
)

type stubProvider struct {
	resp *llm.Response
	err  error
}

func (s *stubProvider) Name() string         { return "stub" }
func (s *stubProvider) SupportsVision() bool { return false }
func (s *stubProvider) Submit(context.Context, llm.Request) (*llm.Response, error) {
	return s.resp, s.err
}

const samplePage = `About Acme Industrial Supply.
Reach our sales team at Sales@acme.example or call (555) 867-5309.
Billing: noreply@acme.example.
Find us on https://www.linkedin.com/company/acme-industrial`

func TestExtractRegexOnly(t *testing.T) {
	got := New(nil).Extract(context.Background(), "Acme", samplePage)

	require.Len(t, got, 1)
	assert.Equal(t, "sales@acme.example", got[0].Email)
	assert.Equal(t, "(555) 867-5309", got[0].Phone)
	assert.Equal(t, "https://www.linkedin.com/company/acme-industrial", got[0].LinkedInURL)
}

func TestExtractSkipsJunkEmails(t *testing.T) {
	got := New(nil).Extract(context.Background(), "Acme", "write to noreply@acme.example please")
	assert.Empty(t, got)
}

func TestExtractEmptyText(t *testing.T) {
	assert.Nil(t, New(nil).Extract(context.Background(), "Acme", "   "))
}

func TestExtractDeduplicatesEmails(t *testing.T) {
	text := "sales@acme.example and again SALES@acme.example"
	got := New(nil).Extract(context.Background(), "Acme", text)
	assert.Len(t, got, 1)
}

func TestExtractModelPassMergesNames(t *testing.T) {
	stub := &stubProvider{resp: &llm.Response{
		Text: `[{"name": "Pat Doyle", "title": "VP Sales", "email": "sales@acme.example", "phone": ""},
		       {"name": "Lee Ramos", "title": "Owner", "email": "", "phone": ""}]`,
	}}

	got := New(stub).Extract(context.Background(), "Acme", samplePage)

	require.Len(t, got, 2)
	assert.Equal(t, "Pat Doyle", got[0].Name)
	assert.Equal(t, "VP Sales", got[0].Title)
	assert.Equal(t, "sales@acme.example", got[0].Email)
	assert.Equal(t, "Lee Ramos", got[1].Name)
}

func TestExtractModelPassHandlesFences(t *testing.T) {
	stub := &stubProvider{resp: &llm.Response{
		Text: "```json\n[{\"name\": \"Pat Doyle\", \"title\": \"\", \"email\": \"\", \"phone\": \"\"}]\n```",
	}}

	got := New(stub).Extract(context.Background(), "Acme", "no contacts in this text at all")
	require.Len(t, got, 1)
	assert.Equal(t, "Pat Doyle", got[0].Name)
}

func TestExtractModelFailureFallsBackToRegex(t *testing.T) {
	stub := &stubProvider{err: errors.New("model down")}

	got := New(stub).Extract(context.Background(), "Acme", samplePage)
	require.Len(t, got, 1)
	assert.Equal(t, "sales@acme.example", got[0].Email)
	assert.Empty(t, got[0].Name)
}

func TestExtractModelGarbageFallsBackToRegex(t *testing.T) {
	stub := &stubProvider{resp: &llm.Response{Text: "I could not find anyone."}}

	got := New(stub).Extract(context.Background(), "Acme", samplePage)
	require.Len(t, got, 1)
	assert.Equal(t, "sales@acme.example", got[0].Email)
}
