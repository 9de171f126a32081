// Command capwatch is the browser-side capture daemon.
//
// Usage:
//
//	capwatch -config capture.yaml          # observe surfaces from YAML config
//	capwatch -url https://mail.example.com # quick single compose surface (stdout sink)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/capsync/capture"
	"github.com/hazyhaar/capsync/event"
)

func main() {
	configPath := flag.String("config", "", "path to capture.yaml config file")
	singleURL := flag.String("url", "", "observe a single compose surface (stdout sink)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *singleURL); err != nil {
		logger.Error("capwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
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

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL string) error {
	var cfg *capture.Config
	switch {
	case configPath != "":
		c, err := capture.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	case singleURL != "":
		cfg = &capture.Config{}
		cfg.Browser.Headless = true
		cfg.Store.Path = "capsync.db"
		cfg.Sinks = []capture.SinkConfig{{Type: "stdout"}}
		cfg.Surfaces = []capture.SurfaceConfig{{
			Kind:     string(event.KindEmailCompose),
			URL:      singleURL,
			Cooldown: 2 * time.Second,
		}}
	default:
		fmt.Fprintln(os.Stderr, "usage: capwatch -config <file> | -url <url>")
		os.Exit(1)
	}

	w, err := capture.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}

	logger.Info("capwatch: running", "surfaces", len(cfg.Surfaces))
	<-ctx.Done()

	logger.Info("capwatch: shutting down")
	return w.Stop()
}
