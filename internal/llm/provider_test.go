package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerText_PrimaryWins(t *testing.T) {
	r := &Response{
		Text:      `{"qualified": true, "confidence_score": 8}`,
		Reasoning: "Let me think about this company...",
	}
	assert.Equal(t, `{"qualified": true, "confidence_score": 8}`, r.AnswerText())
}

func TestAnswerText_EmptyPrimaryFallsBackToSideChannel(t *testing.T) {
	r := &Response{
		Text:      "",
		Reasoning: `{"qualified": false, "confidence_score": 2}`,
	}
	assert.Equal(t, `{"qualified": false, "confidence_score": 2}`, r.AnswerText())
}

func TestAnswerText_ChainOfThoughtPrimaryKeepsBoth(t *testing.T) {
	r := &Response{
		Text:      "Let me analyze the website content first.",
		Reasoning: `{"confidence_score": 7}`,
	}
	got := r.AnswerText()
	assert.Contains(t, got, `{"confidence_score": 7}`)
	assert.Contains(t, got, "Let me analyze")
}

func TestLooksLikeChainOfThought(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"json object", `{"qualified": true}`, false},
		{"let me prefix", "Let me look at this site.", true},
		{"i need to prefix", "I need to check the product pages.", true},
		{"looking at prefix", "Looking at the homepage...", true},
		{"short answer", "Qualified.", false},
		{"long prose no brace", strings.Repeat("The company sells industrial equipment. ", 20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeChainOfThought(tt.text))
		})
	}
}
