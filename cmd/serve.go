package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightpath/brainstorm/api"
	"github.com/brightpath/brainstorm/internal/chat"
	"github.com/brightpath/brainstorm/internal/config"
	"github.com/brightpath/brainstorm/internal/gemini"
	"github.com/brightpath/brainstorm/internal/log"
	"github.com/brightpath/brainstorm/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

const traceFlushTimeout = 5 * time.Second

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger.With("component", "observability"))
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	endpoint, err := gemini.New(ctx, cfg, logger.With("component", "gemini"))
	if err != nil {
		return fmt.Errorf("creating endpoint: %w", err)
	}

	factory := func() (*chat.Chat, error) {
		return chat.New(chat.Config{
			Endpoint:      endpoint,
			Logger:        logger.With("component", "chat"),
			SystemPrompt:  cfg.SystemPrompt,
			Limiter:       chat.SubmitLimiter(cfg.SubmitsPerMinute, cfg.SubmitBurst),
			BackgroundCtx: ctx,
		})
	}
	registry := chat.NewRegistry(factory, logger.With("component", "registry"))

	server, err := api.NewServer(registry, logger.With("component", "api"))
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	logger.Info("server ready", "addr", cfg.Addr, "model", cfg.ModelName)
	if err := server.Run(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}
