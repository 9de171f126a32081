package sink

import (
	"context"

	"github.com/hazyhaar/capsync/event"
)

// EventFunc is called for each event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, ev event.Event) error

// Callback delivers events via Go function calls. Used when the capture
// pipeline and its consumer live in the same binary, and by tests.
type Callback struct {
	onEvent EventFunc
}

// NewCallback creates a Callback sink. A nil handler drops events.
func NewCallback(onEvent EventFunc) *Callback {
	return &Callback{onEvent: onEvent}
}

func (c *Callback) Send(ctx context.Context, ev event.Event) error {
	if c.onEvent != nil {
		return c.onEvent(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
