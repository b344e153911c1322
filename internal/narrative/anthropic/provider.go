// Package anthropic implements the narrative generator on Anthropic's
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/narrative"
	anthropicsdk "github.com/liushuangls/go-anthropic/v2"
)

// DefaultModel is the default Claude model to use
const DefaultModel = "claude-3-5-haiku-20241022"

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey string
	Model  string
}

// Provider implements narrative.Generator using Claude
type Provider struct {
	client *anthropicsdk.Client
	model  string
	logger *slog.Logger
}

// New creates a new Anthropic narrative provider
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Provider{
		client: anthropicsdk.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return "anthropic" }

// Generate sends the prompt as a single user message.
func (p *Provider) Generate(ctx context.Context, req narrative.Request) (*narrative.Result, error) {
	req = req.WithDefaults()
	start := time.Now()
	temperature := float32(req.Temperature)

	resp, err := p.client.CreateMessages(ctx, anthropicsdk.MessagesRequest{
		Model:       anthropicsdk.Model(p.model),
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: &temperature,
		Messages: []anthropicsdk.Message{
			{Role: anthropicsdk.RoleUser, Content: []anthropicsdk.MessageContent{
				{Type: "text", Text: &req.Prompt},
			}},
		},
	})
	if err != nil {
		p.logger.Debug("anthropic request failed", "model", p.model, "error", err)
		return nil, narrative.WrapError("anthropic generate", narrative.Classify(err))
	}

	text, err := narrative.CleanText(extractText(resp))
	if err != nil {
		return nil, narrative.WrapError("anthropic generate", err)
	}

	return &narrative.Result{
		Text:         text,
		Model:        p.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     time.Since(start),
	}, nil
}

func extractText(resp anthropicsdk.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
