// Package gateway provides the completion gateway over the Anthropic
// messages API. It makes exactly one attempt per call and fails closed
// with a ProviderError; retry and fallback policy belongs to the
// evaluator.
package gateway

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/okr-evaluator/internal/config"
	"github.com/sells-group/okr-evaluator/pkg/anthropic"
)

// completionTemperature keeps critiques deterministic-leaning.
const completionTemperature = 0.2

// maxCompletionTokens bounds the model output; the character-level
// truncation below is the caller-facing contract.
const maxCompletionTokens = 2048

// Completer sends a prompt to a text-generation provider and returns the
// raw completion text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderError reports a failed provider call: network, auth, quota or
// timeout. It is never surfaced raw to API callers.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "completion provider: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Anthropic is the production Completer backed by pkg/anthropic.
type Anthropic struct {
	client   anthropic.Client
	model    string
	maxChars int
	limiter  *rate.Limiter
}

// NewAnthropic creates a gateway using the given client and settings.
// When cfg.RPS > 0 an outbound rate limiter throttles provider calls.
func NewAnthropic(client anthropic.Client, cfg config.AnthropicConfig) *Anthropic {
	g := &Anthropic{
		client:   client,
		model:    cfg.Model,
		maxChars: cfg.MaxFeedbackChars,
	}
	if cfg.RPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return g
}

// Complete sends a single completion request. The returned text is
// truncated to the configured maximum length. A context timeout is
// reported as a ProviderError like any other provider failure.
func (g *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", &ProviderError{Err: err}
		}
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   maxCompletionTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt}},
		Temperature: ptrFloat64(completionTemperature),
	})
	if err != nil {
		zap.L().Warn("completion failed", zap.String("model", g.model), zap.Error(err))
		return "", &ProviderError{Err: err}
	}

	resp.Usage.LogCost(g.model, "evaluation")

	return Truncate(resp.Text(), g.maxChars), nil
}

// Truncate limits s to max runes. Non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func ptrFloat64(v float64) *float64 { return &v }
