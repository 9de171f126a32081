// Package capture provides the browser-side event capture daemon. It drives
// Chrome through Rod, observes configured surfaces (mail compose dialogs,
// open messages, article pages), collapses mutation bursts into one
// extraction per quiet period, and emits structurally new snapshots to
// sinks. The automation server consumes the emitted events; capture
// observes, it does not interpret.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/capsync/capture/internal/browser"
	"github.com/hazyhaar/capsync/capture/internal/config"
	"github.com/hazyhaar/capsync/capture/internal/observer"
	"github.com/hazyhaar/capsync/capture/internal/sink"
	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// Config is the top-level capture configuration.
type Config = config.Config

// SurfaceConfig defines one observed surface stream.
type SurfaceConfig = config.SurfaceConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) { return config.LoadFile(path) }

// Watcher is the top-level orchestrator. It manages the browser, one
// observer per configured surface, and the sink fan-out. Create one per
// capture instance.
type Watcher struct {
	cfg    *Config
	mgr    *browser.Manager
	store  *statestore.Store
	sinkR  *sink.Router
	arena  *observer.Arena
	logger *slog.Logger

	mu        sync.Mutex
	tabs      []*browser.Tab
	observers []*observer.Observer
}

// New creates a Watcher from configuration. Extra sinks receive every
// emitted event alongside the configured ones.
func New(cfg *Config, logger *slog.Logger, extra ...sink.Sink) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := statestore.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("capture: open state store: %w", err)
	}

	sinks := append([]sink.Sink(nil), extra...)
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "server":
			base := sc.URL
			if base == "" {
				base = cfg.Server.BaseURL
			}
			api := serverapi.New(base, serverapi.WithLogger(logger))
			sinks = append(sinks, sink.NewServer(api,
				sink.WithStore(store), sink.WithLogger(logger)))
		}
	}

	mgr := browser.NewManager(browser.Config{
		Remote:   cfg.Browser.Remote,
		Headless: cfg.Browser.Headless,
		Stealth:  cfg.Browser.Stealth,
		Logger:   logger,
	})

	return &Watcher{
		cfg:    cfg,
		mgr:    mgr,
		store:  store,
		sinkR:  sink.NewRouter(logger, sinks...),
		arena:  observer.NewArena(),
		logger: logger,
	}, nil
}

// Store exposes the local state store shared with the result consumer.
func (w *Watcher) Store() *statestore.Store { return w.store }

// Start launches the browser and begins observing all configured surfaces.
// A surface that fails to open is logged and skipped; the rest proceed.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("capture: start browser: %w", err)
	}

	for _, sc := range w.cfg.Surfaces {
		if err := w.ObserveSurface(ctx, sc); err != nil {
			w.logger.Error("capture: failed to observe surface",
				"kind", sc.Kind, "url", sc.URL, "error", err)
		}
	}
	return nil
}

// ObserveSurface opens a tab for one surface and starts its observer.
// Article surfaces evaluate at fixed delays after load; mail surfaces are
// mutation-driven through their cooldown window.
func (w *Watcher) ObserveSurface(ctx context.Context, sc SurfaceConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tab, err := w.mgr.OpenTab(ctx, sc.URL)
	if err != nil {
		return fmt.Errorf("capture: open tab: %w", err)
	}

	kind := event.Kind(sc.Kind)

	var notifier observer.Notifier
	if kind != event.KindArticle {
		n, err := tab.WatchMutations(ctx, sc.Root)
		if err != nil {
			tab.Close()
			return fmt.Errorf("capture: watch mutations: %w", err)
		}
		notifier = n
	}

	obs, err := observer.New(observer.Config{
		Kind:     kind,
		Surface:  tab.Surface(),
		Notifier: notifier,
		Cooldown: sc.Cooldown,
		Sink:     w.sinkR,
		Arena:    w.arena,
		Logger:   w.logger,
	})
	if err != nil {
		tab.Close()
		return err
	}
	obs.SetContext(ctx)

	if err := obs.Start(); err != nil {
		tab.Close()
		return fmt.Errorf("capture: start observer: %w", err)
	}

	w.tabs = append(w.tabs, tab)
	w.observers = append(w.observers, obs)

	w.logger.Info("capture: observing surface", "kind", sc.Kind, "url", sc.URL)
	return nil
}

// Stop tears everything down: observers first so no evaluation runs against
// a closing tab, then tabs, browser, and the state store.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, obs := range w.observers {
		obs.Stop()
	}
	w.observers = nil

	for _, tab := range w.tabs {
		if err := tab.Close(); err != nil {
			w.logger.Warn("capture: close tab", "error", err)
		}
	}
	w.tabs = nil

	var firstErr error
	if err := w.mgr.Close(); err != nil {
		firstErr = err
	}
	if err := w.sinkR.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
