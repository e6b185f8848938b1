package llm

import (
	"context"
	"errors"

	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/perplexity"
)

// PerplexityProvider adapts the Perplexity client to the Provider
// interface. Used as the secondary tier when the primary provider is
// exhausted or unavailable.
type PerplexityProvider struct {
	client perplexity.Client
	model  string
}

// NewPerplexityProvider creates an adapter using the given model; empty
// model falls back to the client default.
func NewPerplexityProvider(client perplexity.Client, model string) *PerplexityProvider {
	return &PerplexityProvider{client: client, model: model}
}

func (p *PerplexityProvider) Name() string         { return "perplexity" }
func (p *PerplexityProvider) SupportsVision() bool { return true }

func (p *PerplexityProvider) Submit(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := 0.0

	var msg perplexity.Message
	if len(req.Screenshot) > 0 {
		msg = perplexity.VisionMessage("user", req.Prompt, req.Screenshot)
	} else {
		msg = perplexity.TextMessage("user", req.Prompt)
	}

	msgs := []perplexity.Message{}
	if req.System != "" {
		msgs = append(msgs, perplexity.TextMessage("system", req.System))
	}
	msgs = append(msgs, msg)

	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, classifyPerplexityError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, resilience.NewTransientError(errors.New("perplexity: empty choices"), 0)
	}

	choice := resp.Choices[0].Message
	return &Response{
		Text:         choice.Content,
		Reasoning:    choice.ReasoningContent,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func classifyPerplexityError(err error) error {
	var se *perplexity.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.StatusCode == 429:
		return &resilience.RateLimitError{Provider: "perplexity", Err: err}
	case resilience.IsTransientHTTPStatus(se.StatusCode):
		return resilience.NewTransientError(err, se.StatusCode)
	default:
		return err
	}
}
