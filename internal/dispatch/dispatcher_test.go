package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/ai"
	"github.com/vkuzmin-dev/polyglot/internal/history"
	"github.com/vkuzmin-dev/polyglot/internal/logger"
	"github.com/vkuzmin-dev/polyglot/internal/ratelimit"
)

// fakeProvider records every call so tests can assert on the exact
// history the dispatcher passed in.
type fakeProvider struct {
	name     string
	response string
	err      error

	generateCalls int
	lastPrompt    string
	lastHistory   []ai.Turn
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, prompt string, turns []ai.Turn) (string, error) {
	p.generateCalls++
	p.lastPrompt = prompt
	p.lastHistory = append([]ai.Turn{}, turns...)
	return p.response, p.err
}

func (p *fakeProvider) GenerateImage(ctx context.Context, prompt string) (*ai.Image, error) {
	p.lastPrompt = prompt
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Image{URL: "https://img.example/" + prompt}, nil
}

func (p *fakeProvider) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	p.lastPrompt = prompt
	return p.response, p.err
}

func (p *fakeProvider) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	return p.response, p.err
}

type fixture struct {
	dispatcher *Dispatcher
	provider   *fakeProvider
	buffer     *history.Buffer
	limiter    *ratelimit.Limiter
	now        time.Time
}

func newFixture(t *testing.T, maxRequests int) *fixture {
	t.Helper()

	provider := &fakeProvider{name: "gemini", response: "hello there"}
	registry := ai.NewProviderRegistry(logger.NewTestLogger())
	registry.Register("gemini", provider)
	for _, capability := range []ai.Capability{
		ai.TextGeneration, ai.ImageGeneration, ai.ImageAnalysis, ai.AudioTranscription,
	} {
		require.NoError(t, registry.Bind(ai.Binding{
			Capability: capability,
			Provider:   "gemini",
		}))
	}

	f := &fixture{
		provider: provider,
		buffer:   history.NewBuffer(10),
		limiter:  ratelimit.New(maxRequests, time.Minute),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.dispatcher = New(f.limiter, f.buffer, registry, 0, logger.NewTestLogger())
	f.dispatcher.clock = func() time.Time { return f.now }
	return f
}

func textRequest(user int64, prompt string) Request {
	return Request{User: user, Capability: ai.TextGeneration, Prompt: prompt}
}

func TestInvokeSuccess(t *testing.T) {
	f := newFixture(t, 10)

	result := f.dispatcher.Invoke(context.Background(), textRequest(1, "hi"))

	require.True(t, result.IsSuccess())
	assert.Equal(t, "hello there", result.Text)
	assert.Equal(t, "gemini", result.Binding.Provider)
	assert.NotEmpty(t, result.RequestID)
}

func TestInvokeThrottledSkipsProviderAndContext(t *testing.T) {
	f := newFixture(t, 1)

	first := f.dispatcher.Invoke(context.Background(), textRequest(1, "one"))
	require.True(t, first.IsSuccess())

	second := f.dispatcher.Invoke(context.Background(), textRequest(1, "two"))
	assert.True(t, second.IsThrottled())
	assert.Equal(t, 1, f.provider.generateCalls, "throttled request must not reach the provider")
	assert.Equal(t, 2, f.buffer.Len(1), "throttled request must not touch history")
}

func TestInvokeUnavailableWhenNothingResolves(t *testing.T) {
	f := newFixture(t, 10)

	result := f.dispatcher.Invoke(context.Background(), Request{
		User:       1,
		Capability: ai.TextGeneration,
		Provider:   "nonexistent",
	})
	// The preferred provider is unknown but gemini is still bound, so
	// the registry falls back.
	require.True(t, result.IsSuccess())
	assert.Equal(t, "gemini", result.Binding.Provider)

	f2 := newFixture(t, 10)
	f2.dispatcher.registry.MarkAvailable("gemini", false)
	result = f2.dispatcher.Invoke(context.Background(), textRequest(1, "hi"))
	assert.True(t, result.IsUnavailable())
	assert.Equal(t, 0, f2.provider.generateCalls)
	assert.Equal(t, 0, f2.buffer.Len(1))
}

func TestHistoryExcludesCurrentTurn(t *testing.T) {
	f := newFixture(t, 10)

	first := f.dispatcher.Invoke(context.Background(), textRequest(1, "first question"))
	require.True(t, first.IsSuccess())
	assert.Empty(t, f.provider.lastHistory, "first turn must see empty history")

	second := f.dispatcher.Invoke(context.Background(), textRequest(1, "second question"))
	require.True(t, second.IsSuccess())

	require.Len(t, f.provider.lastHistory, 2)
	assert.Equal(t, "first question", f.provider.lastHistory[0].Content)
	assert.Equal(t, ai.RoleUser, f.provider.lastHistory[0].Role)
	assert.Equal(t, "hello there", f.provider.lastHistory[1].Content)
	assert.Equal(t, ai.RoleAssistant, f.provider.lastHistory[1].Role)
	for _, turn := range f.provider.lastHistory {
		assert.NotEqual(t, "second question", turn.Content,
			"history must exclude the turn being processed")
	}
}

func TestFailureLeavesHistoryUntouched(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{"fatal invalid key", errors.New("invalid API key"), OutcomeFatal},
		{"retryable timeout", errors.New("connection timeout"), OutcomeRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10)
			seed := f.dispatcher.Invoke(context.Background(), textRequest(1, "seed"))
			require.True(t, seed.IsSuccess())
			lenBefore := f.buffer.Len(1)

			f.provider.err = tt.err
			result := f.dispatcher.Invoke(context.Background(), textRequest(1, "doomed"))

			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.err.Error(), result.Reason)
			assert.Equal(t, lenBefore, f.buffer.Len(1),
				"failed exchange must not pollute history")
		})
	}
}

func TestNonTextCapabilitiesSkipHistory(t *testing.T) {
	f := newFixture(t, 10)

	for _, req := range []Request{
		{User: 1, Capability: ai.ImageGeneration, Prompt: "a cat"},
		{User: 1, Capability: ai.ImageAnalysis, Prompt: "what is this", Payload: []byte{1, 2}},
		{User: 1, Capability: ai.AudioTranscription, Payload: []byte{3, 4}, Format: "ogg"},
	} {
		result := f.dispatcher.Invoke(context.Background(), req)
		require.True(t, result.IsSuccess(), "capability %s", req.Capability)
	}
	assert.Equal(t, 0, f.buffer.Len(1), "non-text capabilities are stateless")
}

func TestImageGenerationReturnsImage(t *testing.T) {
	f := newFixture(t, 10)

	result := f.dispatcher.Invoke(context.Background(), Request{
		User:       1,
		Capability: ai.ImageGeneration,
		Prompt:     "sunset",
	})
	require.True(t, result.IsSuccess())
	require.NotNil(t, result.Image)
	assert.Equal(t, "https://img.example/sunset", result.Image.URL)
	assert.Empty(t, result.Text)
}

func TestSingleAttemptPerInvoke(t *testing.T) {
	f := newFixture(t, 10)
	f.provider.err = errors.New("rate limit exceeded")

	result := f.dispatcher.Invoke(context.Background(), textRequest(1, "hi"))

	assert.True(t, result.IsRetryable())
	assert.Equal(t, 1, f.provider.generateCalls, "dispatcher never auto-retries")
}

func TestThrottledDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t, 2)

	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "a")).IsSuccess())
	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "b")).IsSuccess())
	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "c")).IsThrottled())

	// The denied attempt did not extend the window: both admitted
	// events age out a minute after they were recorded.
	f.now = f.now.Add(61 * time.Second)
	assert.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "d")).IsSuccess())
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture(t, 1)

	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "from one")).IsSuccess())
	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(2, "from two")).IsSuccess())

	assert.Equal(t, 2, f.buffer.Len(1))
	assert.Equal(t, 2, f.buffer.Len(2))
	assert.Equal(t, "from two", f.provider.lastPrompt)
}

func TestClearHistory(t *testing.T) {
	f := newFixture(t, 10)
	require.True(t, f.dispatcher.Invoke(context.Background(), textRequest(1, "hi")).IsSuccess())
	require.Equal(t, 2, f.dispatcher.HistoryLen(1))

	f.dispatcher.ClearHistory(1)
	assert.Equal(t, 0, f.dispatcher.HistoryLen(1))
}

func TestRemainingQuota(t *testing.T) {
	f := newFixture(t, 3)
	assert.Equal(t, 3, f.dispatcher.RemainingQuota(1))

	f.dispatcher.Invoke(context.Background(), textRequest(1, "a"))
	assert.Equal(t, 2, f.dispatcher.RemainingQuota(1))
}

func TestUnknownCapabilityPanics(t *testing.T) {
	f := newFixture(t, 10)

	assert.Panics(t, func() {
		f.dispatcher.Invoke(context.Background(), Request{
			User:       1,
			Capability: ai.Capability("telepathy"),
		})
	})
}
