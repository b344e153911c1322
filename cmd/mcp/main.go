// Command mcp exposes the cleanup tools over the Model Context Protocol on
// stdin/stdout. Logs go to stderr so they never corrupt the protocol stream.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/AlBaraa63/Clean-City/internal"
	"github.com/AlBaraa63/Clean-City/internal/app"
	"github.com/AlBaraa63/Clean-City/internal/mcp"
)

var version = "dev"

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("MCP server starting", "version", version, "ai_provider", cfg.AIProvider)
	return mcp.NewServer("cleancity", version, a.Service, logger).ServeStdio()
}

func main() {
	log.SetOutput(os.Stderr)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
