package narrative_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/domain"
	"github.com/AlBaraa63/Clean-City/internal/narrative"
	"github.com/AlBaraa63/Clean-City/internal/narrative/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, narrative.ErrTimeout},
		{"cancelled", context.Canceled, narrative.ErrTimeout},
		{"auth", errors.New("error, status code: 401, message: invalid api key"), narrative.ErrUnauthorized},
		{"rate limit", errors.New("status 429: rate limit reached"), narrative.ErrRateLimit},
		{"overloaded", errors.New("anthropic API error type: overloaded_error"), narrative.ErrUnavailable},
		{"already classified", narrative.WrapError("x", narrative.ErrEmptyResponse), narrative.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, narrative.Classify(tt.err), tt.want)
		})
	}

	assert.Nil(t, narrative.Classify(nil))
	unknown := errors.New("something odd")
	assert.Equal(t, unknown, narrative.Classify(unknown))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Bring gloves.  ", "Bring gloves."},
		{"bare fence", "```\nBring gloves.\n```", "Bring gloves."},
		{"tagged fence", "```markdown\nBring gloves.\nMeet at noon.\n```", "Bring gloves.\nMeet at noon."},
		{"inline fence", "```Bring gloves and bags.```", "Bring gloves and bags."},
		{"unterminated fence", "```text\nBring gloves.", "Bring gloves."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := narrative.CleanText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, empty := range []string{"", "   ", "```\n```", "``````"} {
		_, err := narrative.CleanText(empty)
		assert.ErrorIs(t, err, narrative.ErrEmptyResponse, "input %q", empty)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, narrative.IsRetryable(narrative.ErrRateLimit))
	assert.True(t, narrative.IsRetryable(narrative.WrapError("op", narrative.ErrUnavailable)))
	assert.False(t, narrative.IsRetryable(narrative.ErrUnauthorized))
	assert.False(t, narrative.IsRetryable(narrative.ErrEmptyResponse))
}

func TestRequestWithDefaults(t *testing.T) {
	req := narrative.Request{Prompt: "p"}.WithDefaults()
	assert.Equal(t, narrative.DefaultMaxTokens, req.MaxTokens)
	assert.Equal(t, narrative.DefaultTemperature, req.Temperature)
	assert.Equal(t, narrative.DefaultSystem, req.System)
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	provider := mock.New(discardLogger())
	provider.Error = narrative.ErrUnavailable

	gen := narrative.WithRetry(provider, narrative.ProviderConfig{
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}, discardLogger())

	_, err := gen.Generate(context.Background(), narrative.Request{Prompt: "p"})
	assert.ErrorIs(t, err, narrative.ErrUnavailable)
	assert.Equal(t, 3, provider.GenerateCalls)
	assert.Equal(t, "mock", gen.Name())
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	provider := mock.New(discardLogger())
	provider.Error = narrative.ErrUnauthorized

	gen := narrative.WithRetry(provider, narrative.ProviderConfig{
		MaxRetries:     5,
		RetryBaseDelay: time.Millisecond,
	}, discardLogger())

	_, err := gen.Generate(context.Background(), narrative.Request{Prompt: "p"})
	assert.ErrorIs(t, err, narrative.ErrUnauthorized)
	assert.Equal(t, 1, provider.GenerateCalls)
}

func TestWithRetry_HonoursCancellation(t *testing.T) {
	provider := mock.New(discardLogger())
	provider.Error = narrative.ErrRateLimit

	gen := narrative.WithRetry(provider, narrative.ProviderConfig{
		MaxRetries:     3,
		RetryBaseDelay: time.Hour,
	}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gen.Generate(ctx, narrative.Request{Prompt: "p"})
	assert.ErrorIs(t, err, narrative.ErrTimeout)
	assert.Equal(t, 1, provider.GenerateCalls)
}

func TestWithCache(t *testing.T) {
	provider := mock.New(discardLogger())
	gen, err := narrative.WithCache(provider, 8)
	require.NoError(t, err)

	first, err := gen.Generate(context.Background(), narrative.Request{Prompt: "same"})
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), narrative.Request{Prompt: "same"})
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, provider.GenerateCalls)

	_, err = gen.Generate(context.Background(), narrative.Request{Prompt: "different"})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.GenerateCalls)
}

func TestWithCache_DoesNotCacheFailures(t *testing.T) {
	provider := mock.New(discardLogger())
	provider.Error = narrative.ErrUnavailable
	gen, err := narrative.WithCache(provider, 8)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), narrative.Request{Prompt: "p"})
	assert.Error(t, err)

	provider.Error = nil
	res, err := gen.Generate(context.Background(), narrative.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Text)
	assert.Equal(t, 2, provider.GenerateCalls)
}

func TestBuildPlanPrompt(t *testing.T) {
	prompt := narrative.BuildPlanPrompt(narrative.PlanContext{
		LabelCounts: []domain.LabelCount{
			{Label: "plastic_bottle", Count: 4},
			{Label: "glass_bottle", Count: 1},
		},
		Total:      5,
		Severity:   domain.SeverityLow,
		Volunteers: 2,
		Minutes:    30,
		Equipment:  []string{"Gloves", "Safety goggles"},
	})

	assert.Contains(t, prompt, "- plastic_bottle: 4 item(s)")
	assert.Contains(t, prompt, "Total items: 5")
	assert.Contains(t, prompt, "Location: Not specified")
	assert.Contains(t, prompt, "Notes: None")
	assert.Contains(t, prompt, "Equipment: Gloves, Safety goggles")
	assert.Equal(t, prompt, narrative.BuildPlanPrompt(narrative.PlanContext{
		LabelCounts: []domain.LabelCount{
			{Label: "plastic_bottle", Count: 4},
			{Label: "glass_bottle", Count: 1},
		},
		Total:      5,
		Severity:   domain.SeverityLow,
		Volunteers: 2,
		Minutes:    30,
		Equipment:  []string{"Gloves", "Safety goggles"},
	}))
}
