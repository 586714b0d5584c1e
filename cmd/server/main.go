// Package main is the entry point for the DreamWays server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration
// 2. Create process-wide dependencies (logger, completion client)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/dreamways/internal/completion"
	"github.com/sakif/dreamways/internal/config"
	"github.com/sakif/dreamways/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Environment variables, seeded from .env when present.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// === 3. COMPLETION SERVICE ===
	// Without an API key the server still starts; /generate-trip answers 503.
	var completer completion.Completer = completion.Unavailable{}
	if cfg.CompletionEnabled() {
		completer = completion.NewOpenAI(completion.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.CompletionModel,
			MaxTokens: cfg.CompletionMaxTokens,
			Timeout:   cfg.CompletionTimeout,
		}, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, trip generation is disabled")
	}
	if cfg.PlanCacheTTL > 0 {
		completer = completion.NewCached(completer, cfg.PlanCacheTTL)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, completer, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
