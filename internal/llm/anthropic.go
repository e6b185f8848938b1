package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/pkg/anthropic"
)

// AnthropicProvider adapts the Anthropic client to the Provider interface.
// One instance per model tier (vision model, text model).
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	vision bool
}

// NewAnthropicProvider creates an adapter for a specific model. vision
// controls whether screenshots are attached to requests.
func NewAnthropicProvider(client anthropic.Client, model string, vision bool) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model, vision: vision}
}

func (p *AnthropicProvider) Name() string {
	if p.vision {
		return "anthropic_vision"
	}
	return "anthropic_text"
}

func (p *AnthropicProvider) SupportsVision() bool { return p.vision }

func (p *AnthropicProvider) Submit(ctx context.Context, req Request) (*Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msg := anthropic.Message{Role: "user", Content: req.Prompt}
	if p.vision && len(req.Screenshot) > 0 {
		msg.Image = req.Screenshot
	}

	temperature := 0.0
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{msg},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	out := &Response{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	var texts, thinking []string
	for _, b := range resp.Content {
		switch b.Type {
		case "thinking":
			thinking = append(thinking, b.Thinking)
		default:
			if b.Text != "" {
				texts = append(texts, b.Text)
			}
		}
	}
	out.Text = strings.Join(texts, "\n")
	out.Reasoning = strings.Join(thinking, "\n")
	return out, nil
}

// quotaMarkers distinguish a daily/budget ceiling from an ordinary
// per-minute 429. The provider uses the same status for both, so the error
// body is the only discriminator.
var quotaMarkers = []string{
	"daily",
	"quota",
	"credit balance",
	"monthly limit",
	"tokens per day",
}

func classifyAnthropicError(err error) error {
	status, ok := anthropic.StatusCode(err)
	if !ok {
		// Network-level failure; let the generic transient heuristics decide.
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case status == 429 || status == 400:
		for _, marker := range quotaMarkers {
			if strings.Contains(msg, marker) {
				return &resilience.QuotaError{Provider: "anthropic", Err: err}
			}
		}
		if status == 429 {
			return &resilience.RateLimitError{Provider: "anthropic", Err: err}
		}
		return eris.Wrap(err, "anthropic: rejected request")
	case status == 529 || (status >= 500 && status < 600) || status == 408:
		return resilience.NewTransientError(err, status)
	default:
		return err
	}
}
