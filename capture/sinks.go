package capture

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/capsync/capture/internal/sink"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// Sink receives emitted capture events.
type Sink = sink.Sink

// NewStdoutSink emits events as JSON lines. nil writer = os.Stdout.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewServerSink emits events to the automation server and keeps the
// optimistic local counters in the store. nil logger = slog.Default().
func NewServerSink(api *serverapi.Client, store *statestore.Store, logger *slog.Logger) Sink {
	opts := []sink.ServerOption{sink.WithStore(store)}
	if logger != nil {
		opts = append(opts, sink.WithLogger(logger))
	}
	return sink.NewServer(api, opts...)
}

// NewCallbackSink delivers events to an in-process function.
func NewCallbackSink(fn sink.EventFunc) Sink {
	return sink.NewCallback(fn)
}
