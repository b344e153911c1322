package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/narrative"
)

// Provider is a mock narrative generator for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	Response *narrative.Result
	Error    error
	// Delay blocks each call until it elapses or ctx is done.
	Delay time.Duration

	// Call tracking for testing
	GenerateCalls int
	LastRequest   narrative.Request
}

// New creates a new mock narrative provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Name identifies the provider.
func (p *Provider) Name() string { return "mock" }

// Generate returns a canned summary, or the configured response or error.
func (p *Provider) Generate(ctx context.Context, req narrative.Request) (*narrative.Result, error) {
	p.GenerateCalls++
	p.LastRequest = req

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, narrative.Classify(ctx.Err())
		}
	}

	if p.Error != nil {
		return nil, p.Error
	}
	if p.Response != nil {
		return p.Response, nil
	}

	return &narrative.Result{
		Text: "This site needs a coordinated cleanup. Start with the largest clusters of litter, " +
			"keep sharp items in rigid containers, and separate recyclables before disposal. " +
			"Clearing it now keeps debris out of drains and away from wildlife.",
		Model:        "mock-narrative-v1",
		InputTokens:  len(req.Prompt) / 4,
		OutputTokens: 60,
		Duration:     5 * time.Millisecond,
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.GenerateCalls = 0
	p.LastRequest = narrative.Request{}
	p.Response = nil
	p.Error = nil
	p.Delay = 0
}
