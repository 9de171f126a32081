// Package sink defines output backends for captured events.
package sink

import (
	"context"

	"github.com/hazyhaar/capsync/event"
)

// Sink is the output interface. Implementations deliver accepted events to
// different backends (automation server, stdout, in-process callback).
type Sink interface {
	Send(ctx context.Context, ev event.Event) error
	Close() error
}
