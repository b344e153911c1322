package narrative

import (
	"context"
	"log/slog"
	"time"
)

type retrying struct {
	next       Generator
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// WithRetry retries transient failures of next with exponential backoff
// (base * 2^(attempt-1)). Waiting honours ctx cancellation.
func WithRetry(next Generator, cfg ProviderConfig, logger *slog.Logger) Generator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &retrying{
		next:       next,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		logger:     logger,
	}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Generate(ctx context.Context, req Request) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		res, err := r.next.Generate(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt >= r.maxRetries {
			break
		}

		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		r.logger.Info("Retrying narrative request",
			"provider", r.next.Name(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, Classify(ctx.Err())
		}
	}

	return nil, lastErr
}
