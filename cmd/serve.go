package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	mcpSDK "github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"github.com/okibi/gemini-mcp/internal/config"
	"github.com/okibi/gemini-mcp/internal/files"
	"github.com/okibi/gemini-mcp/internal/gemini"
	"github.com/okibi/gemini-mcp/internal/log"
	"github.com/okibi/gemini-mcp/internal/mcp"
	"github.com/okibi/gemini-mcp/internal/repopack"
)

// runServe wires the pipeline and runs the MCP server on stdio until
// the context is canceled.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: logLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	registry := gemini.NewRegistry()
	adapter := gemini.NewAdapter(registry, logger.With("component", "adapter"))
	server, err := mcp.NewServer(mcp.Config{
		Name:     "gemini-mcp",
		Version:  Version,
		Logger:   logger.With("component", "mcp"),
		Selector: gemini.NewSelector(registry, cfg.DefaultModel, logger.With("component", "selector")),
		Adapter:  adapter,
		Engine: gemini.NewEngine(
			gemini.NewGenerateFunc(client),
			registry,
			adapter,
			gemini.EngineOptions{PaidTier: cfg.PaidTier, Timeout: cfg.RequestTimeout},
			logger.With("component", "engine"),
		),
		Formatter: gemini.NewFormatter(logger.With("component", "formatter")),
		Loader:    files.NewLoader(logger.With("component", "loader")),
		Packer:    repopack.New(logger.With("component", "repopack")),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready",
		"name", "gemini-mcp", "version", Version,
		"transport", "stdio", "paid_tier", cfg.PaidTier)

	if err := server.Run(ctx, &mcpSDK.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
