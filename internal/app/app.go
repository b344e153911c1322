// Package app assembles the CleanCity components from configuration. Both
// the HTTP server and the MCP server start from New.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/AlBaraa63/Clean-City/internal"
	"github.com/AlBaraa63/Clean-City/internal/narrative"
	"github.com/AlBaraa63/Clean-City/internal/narrative/anthropic"
	"github.com/AlBaraa63/Clean-City/internal/narrative/gemini"
	"github.com/AlBaraa63/Clean-City/internal/narrative/mock"
	"github.com/AlBaraa63/Clean-City/internal/narrative/openai"
	"github.com/AlBaraa63/Clean-City/internal/planner"
	"github.com/AlBaraa63/Clean-City/internal/service"
	"github.com/AlBaraa63/Clean-City/internal/storage"
	"github.com/AlBaraa63/Clean-City/internal/store"
)

// App holds the wired components. Close releases the database.
type App struct {
	DB      *sql.DB
	Service service.CleanupService
	Planner *planner.Planner
}

// New opens and migrates the database, loads the equipment rules, builds
// the narrative generator and image archive, and returns the service.
func New(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	db, err := store.Open(ctx, store.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	a, err := build(ctx, db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, db *sql.DB, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	if err := internal.RunMigrations(db, cfg.DatabaseDriver); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready", "driver", cfg.DatabaseDriver)

	events, err := store.New(db, cfg.DatabaseDriver, logger)
	if err != nil {
		return nil, fmt.Errorf("event store initialization failed: %w", err)
	}

	rules, err := planner.LoadRules(cfg.EquipmentRulesPath)
	if err != nil {
		return nil, fmt.Errorf("equipment rules: %w", err)
	}

	gen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("narrative provider initialization failed: %w", err)
	}

	p := planner.New(planner.Config{
		Rules:            rules,
		Generator:        gen,
		NarrativeTimeout: cfg.AIRequestTimeout,
	}, logger)

	backend, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local:    storage.LocalConfig{BasePath: cfg.LocalStoragePath},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	deps := service.Deps{Planner: p, Store: events}
	if backend != nil {
		deps.Archive = storage.NewArchive(backend, logger)
		logger.Info("Image archive enabled", "provider", cfg.StorageProvider)
	}

	return &App{
		DB:      db,
		Service: service.NewCleanupService(deps, logger),
		Planner: p,
	}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.DB.Close()
}

// NewGenerator builds the configured narrative generator wrapped with
// retries and, when AICacheSize is positive, an LRU cache. The offline
// provider yields nil, which keeps every plan on the template summary.
func NewGenerator(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (narrative.Generator, error) {
	var (
		gen narrative.Generator
		err error
	)

	switch cfg.AIProvider {
	case internal.AIProviderOffline, "":
		logger.Info("Narrative enhancement disabled")
		return nil, nil
	case internal.AIProviderMock:
		gen = mock.New(logger)
	case internal.AIProviderAnthropic:
		gen, err = anthropic.New(anthropic.Config{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel}, logger)
	case internal.AIProviderOpenAI:
		gen, err = openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel}, logger)
	case internal.AIProviderGemini:
		gen, err = gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
	if err != nil {
		return nil, err
	}

	gen = narrative.WithRetry(gen, narrative.ProviderConfig{
		MaxRetries:     cfg.AIMaxRetries,
		RetryBaseDelay: cfg.AIRetryBaseDelay,
		RequestTimeout: cfg.AIRequestTimeout,
	}, logger)

	if cfg.AICacheSize > 0 {
		gen, err = narrative.WithCache(gen, cfg.AICacheSize)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Narrative enhancement enabled", "provider", gen.Name(), "cache_size", cfg.AICacheSize)
	return gen, nil
}
