package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/okr-evaluator/internal/config"
	"github.com/sells-group/okr-evaluator/pkg/anthropic"
)

// stubClient records the last request and returns a canned response.
type stubClient struct {
	lastReq anthropic.MessageRequest
	resp    *anthropic.MessageResponse
	err     error
}

func (s *stubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func testConfig() config.AnthropicConfig {
	return config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxFeedbackChars: 5000}
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestComplete_PassesModelAndTemperature(t *testing.T) {
	stub := &stubClient{resp: textResponse("ok")}
	g := NewAnthropic(stub, testConfig())

	out, err := g.Complete(context.Background(), "persona", "evaluate this")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	assert.Equal(t, "claude-haiku-4-5-20251001", stub.lastReq.Model)
	assert.Equal(t, "persona", stub.lastReq.System)
	require.NotNil(t, stub.lastReq.Temperature)
	assert.InDelta(t, 0.2, *stub.lastReq.Temperature, 0.001)
	require.Len(t, stub.lastReq.Messages, 1)
	assert.Equal(t, "user", stub.lastReq.Messages[0].Role)
	assert.Equal(t, "evaluate this", stub.lastReq.Messages[0].Content)
}

func TestComplete_TruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", 9000)
	stub := &stubClient{resp: textResponse(long)}
	g := NewAnthropic(stub, testConfig())

	out, err := g.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Len(t, out, 5000)
}

func TestComplete_ProviderFailure(t *testing.T) {
	stub := &stubClient{err: errors.New("401 invalid api key")}
	g := NewAnthropic(stub, testConfig())

	_, err := g.Complete(context.Background(), "sys", "user")
	require.Error(t, err)

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Error(), "completion provider")
}

// countingClient tracks attempts so tests can assert single-shot calls.
type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.calls++
	return nil, c.err
}

func TestComplete_SingleAttemptOnFailure(t *testing.T) {
	counting := &countingClient{err: errors.New("overloaded_error: upstream busy")}
	g := NewAnthropic(counting, testConfig())

	_, err := g.Complete(context.Background(), "sys", "user")
	require.Error(t, err)

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	// Retry policy belongs to the caller; the gateway must not retry.
	assert.Equal(t, 1, counting.calls)
}

func TestComplete_CancelledContext(t *testing.T) {
	stub := &stubClient{resp: textResponse("ignored")}
	cfg := testConfig()
	cfg.RPS = 1
	g := NewAnthropic(stub, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Draining the limiter's initial token forces Wait to observe the
	// cancelled context.
	_, _ = g.Complete(context.Background(), "sys", "user")
	_, err := g.Complete(ctx, "sys", "user")
	require.Error(t, err)

	var pErr *ProviderError
	assert.ErrorAs(t, err, &pErr)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	// Rune-aware: multibyte characters are not split.
	assert.Equal(t, "héll", Truncate("héllo", 4))
}
