// Package openai implements the narrative generator on any
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/narrative"
	openaisdk "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config contains configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	BaseURL string // optional, e.g. a local vLLM endpoint
	Model   string
}

// Provider implements narrative.Generator using chat completions.
type Provider struct {
	client *openaisdk.Client
	model  string
	logger *slog.Logger
}

// New creates a new OpenAI-compatible provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai API key or base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := openaisdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &Provider{
		client: openaisdk.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return "openai" }

// Generate sends a system and a user message.
func (p *Provider) Generate(ctx context.Context, req narrative.Request) (*narrative.Result, error) {
	req = req.WithDefaults()
	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openaisdk.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaisdk.ChatCompletionMessage{
			{Role: openaisdk.ChatMessageRoleSystem, Content: req.System},
			{Role: openaisdk.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		p.logger.Debug("openai request failed", "model", p.model, "error", err)
		return nil, narrative.WrapError("openai generate", narrative.Classify(err))
	}
	if len(resp.Choices) == 0 {
		return nil, narrative.WrapError("openai generate", narrative.ErrEmptyResponse)
	}

	text, err := narrative.CleanText(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, narrative.WrapError("openai generate", err)
	}

	return &narrative.Result{
		Text:         text,
		Model:        p.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}
