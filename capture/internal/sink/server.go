package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// Server delivers events to the automation server: one best-effort POST per
// event, no retry, no queue. Delivery failure is silent degradation — the
// server's own event list is the authoritative counter, reconciled by the
// popup's poll cycle, so a dropped event costs nothing but itself.
//
// On success it records optimistic local state in the durable store: the
// provisional event counter and the capped recent-events list.
type Server struct {
	api    *serverapi.Client
	store  *statestore.Store
	logger *slog.Logger
}

// ServerOption configures a Server sink.
type ServerOption func(*Server)

// WithStore attaches a durable store for local counters. Without one, the
// sink only delivers.
func WithStore(st *statestore.Store) ServerOption {
	return func(s *Server) { s.store = st }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server sink over an API client.
func NewServer(api *serverapi.Client, opts ...ServerOption) *Server {
	s := &Server{api: api, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Send(ctx context.Context, ev event.Event) error {
	if s.store != nil {
		enabled, err := s.store.Enabled(ctx)
		if err == nil && !enabled {
			s.logger.Debug("sink: capture disabled, dropping event", "type", ev.EventType)
			return nil
		}
	}

	if err := s.api.PostEvent(ctx, ev); err != nil {
		// No retry and no user-visible error: failed delivery leaves local
		// state untouched so the counter never drifts ahead of reality.
		s.logger.Warn("sink: event delivery failed", "type", ev.EventType, "error", err)
		return nil
	}

	s.logger.Info("sink: event delivered", "type", ev.EventType, "url", ev.URL)

	if s.store != nil {
		if err := s.store.IncrementEventCount(ctx); err != nil {
			s.logger.Warn("sink: counter update failed", "error", err)
		}
		if err := s.store.PushRecentEvent(ctx, event.Summarize(ev)); err != nil {
			s.logger.Warn("sink: recent events update failed", "error", err)
		}
	}
	return nil
}

func (s *Server) Close() error { return nil }
