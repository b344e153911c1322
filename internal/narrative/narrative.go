// Package narrative defines the optional prose generator used to enrich
// cleanup plans, along with its error taxonomy and composable decorators.
//
// Every generator is optional. Callers must treat any returned error as a
// signal to fall back to deterministic text.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Generator produces free-form text from a prompt.
type Generator interface {
	// Generate returns text for the request or an error wrapping one of the
	// sentinel errors below.
	Generate(ctx context.Context, req Request) (*Result, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}

// Request is a single text generation call.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Defaults applied to requests that leave fields unset.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
	DefaultSystem      = "You are a helpful environmental cleanup coordinator. Be practical and encouraging."
)

// WithDefaults fills unset request fields.
func (r Request) WithDefaults() Request {
	if r.MaxTokens <= 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.Temperature <= 0 {
		r.Temperature = DefaultTemperature
	}
	if r.System == "" {
		r.System = DefaultSystem
	}
	return r
}

// Result is the outcome of a successful generation.
type Result struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// ProviderConfig contains common configuration for generators.
type ProviderConfig struct {
	MaxRetries     int           // Maximum attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for generator operations
var (
	// ErrRateLimit indicates the API rate limit has been exceeded
	ErrRateLimit = errors.New("narrative provider rate limit exceeded")

	// ErrTimeout indicates the request timed out or was cancelled
	ErrTimeout = errors.New("narrative request timed out")

	// ErrUnavailable indicates the service is temporarily unavailable
	ErrUnavailable = errors.New("narrative service temporarily unavailable")

	// ErrUnauthorized indicates missing or invalid API credentials
	ErrUnauthorized = errors.New("narrative provider authentication failed")

	// ErrContentPolicy indicates the provider refused the prompt
	ErrContentPolicy = errors.New("narrative request violates content policy")

	// ErrEmptyResponse indicates the provider returned no usable text
	ErrEmptyResponse = errors.New("narrative provider returned no text")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with context about the provider operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("narrative %s: %w", operation, err)
}

// Classify maps an SDK error onto the sentinel errors. Errors that already
// carry a sentinel are returned unchanged. SDK error types differ across
// providers, so classification relies on status codes and messages.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrRateLimit, ErrTimeout, ErrUnavailable, ErrUnauthorized, ErrContentPolicy, ErrEmptyResponse} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "invalid api key", "invalid x-api-key", "permission denied", "authentication"):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case containsAny(msg, "429", "rate limit", "rate_limit", "resource_exhausted", "quota"):
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	case containsAny(msg, "timeout", "deadline exceeded", "408"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case containsAny(msg, "500", "502", "503", "504", "529", "overloaded", "unavailable", "connection refused", "no such host", "eof"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case containsAny(msg, "safety", "content policy", "blocked"):
		return fmt.Errorf("%w: %v", ErrContentPolicy, err)
	}
	return err
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// CleanText trims provider output, removes a surrounding markdown code
// fence (with or without a language tag), and rejects empty responses.
func CleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
		// A first line with no spaces is a language tag.
		if tag, rest, ok := strings.Cut(text, "\n"); ok && !strings.ContainsAny(strings.TrimSpace(tag), " \t") {
			text = rest
		}
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
