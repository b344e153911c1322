// Package gemini implements the narrative generator on Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/narrative"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements narrative.Generator using genai.
type Provider struct {
	cli    *genai.Client
	model  string
	logger *slog.Logger
}

// New creates a Gemini client. The API key may be empty when GEMINI_API_KEY
// or GOOGLE_API_KEY is set in the environment.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Provider{cli: cli, model: cfg.Model, logger: logger}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return "gemini" }

// Generate calls GenerateContent with the system prompt as instruction.
func (p *Provider) Generate(ctx context.Context, req narrative.Request) (*narrative.Result, error) {
	req = req.WithDefaults()
	start := time.Now()
	temperature := float32(req.Temperature)

	resp, err := p.cli.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.Prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
			Temperature:       &temperature,
			MaxOutputTokens:   int32(req.MaxTokens),
		},
	)
	if err != nil {
		p.logger.Debug("gemini request failed", "model", p.model, "error", err)
		return nil, narrative.WrapError("gemini generate", narrative.Classify(err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, narrative.WrapError("gemini generate", narrative.ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text, err := narrative.CleanText(b.String())
	if err != nil {
		return nil, narrative.WrapError("gemini generate", err)
	}

	res := &narrative.Result{
		Text:     text,
		Model:    p.model,
		Duration: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		res.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		res.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return res, nil
}
