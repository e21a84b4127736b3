// Command blockprobe verifies the block-directory install flow of a live
// editor: search, install, and confirm the extension loads cleanly.
//
// Usage:
//
//	blockprobe -config blockprobe.yaml      # one-shot run from YAML config
//	blockprobe -url <editor> -slug <slug>   # one-shot run from flags
//	blockprobe -config c.yaml -serve :8086  # serve the run-history API
//	blockprobe -config c.yaml -mcp          # expose the tools over MCP stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/blockprobe/probe"
)

func main() {
	configPath := flag.String("config", "", "path to blockprobe.yaml config file")
	editorURL := flag.String("url", "", "editor page URL (overrides config)")
	slug := flag.String("slug", "", "extension slug to search and install (overrides config)")
	block := flag.String("block", "", "block type expected in the document (overrides config)")
	serveAddr := flag.String("serve", "", "serve the run-history API on this address instead of running")
	mcpStdio := flag.Bool("mcp", false, "serve the MCP tools on stdio instead of running")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *editorURL, *slug, *block)
	if err != nil {
		logger.Error("blockprobe: config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg, *serveAddr, *mcpStdio); err != nil {
		logger.Error("blockprobe: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, editorURL, slug, block string) (*probe.Config, error) {
	var cfg *probe.Config
	if path != "" {
		loaded, err := probe.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &probe.Config{}
	}
	if editorURL != "" {
		cfg.Editor.URL = editorURL
	}
	if slug != "" {
		cfg.Plugin.Slug = slug
	}
	if block != "" {
		cfg.Plugin.Block = block
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *probe.Config, serveAddr string, mcpStdio bool) error {
	if mcpStdio {
		return runMCP(ctx, logger, cfg)
	}
	if serveAddr != "" {
		return runServe(ctx, logger, cfg, serveAddr)
	}
	return runOnce(ctx, logger, cfg)
}

func runOnce(ctx context.Context, logger *slog.Logger, cfg *probe.Config) error {
	runner, err := probe.NewRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	// The history API can ride along for the duration of the run.
	if addr := cfg.History.ServeAddr; addr != "" {
		if handler := runner.HistoryHandler(); handler != nil {
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				srv.Shutdown(context.Background())
			}()
			go func() {
				logger.Info("blockprobe: history API listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Warn("blockprobe: history API", "error", err)
				}
			}()
			defer srv.Shutdown(context.Background())
		}
	}

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("run %s: %w", runner.RunID(), err)
	}
	logger.Info("blockprobe: run passed", "run_id", runner.RunID())
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *probe.Config, addr string) error {
	runner, err := probe.NewRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	handler := runner.HistoryHandler()
	if handler == nil {
		return fmt.Errorf("serve: no history store configured")
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Info("blockprobe: history API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *probe.Config) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "blockprobe", Version: "0.1.0"}, nil)
	tools := &probe.Tools{Config: cfg, Logger: logger}
	tools.RegisterMCP(srv)

	logger.Info("blockprobe: MCP server on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}
