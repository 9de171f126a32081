// Package popup implements the result-consumer side of the pipeline: a
// poller that synchronizes displayed state with the automation server, the
// result lifecycle that turns new results into at-most-once interrupts, the
// workflow store, and the rendering plus actions for results and recent
// events.
package popup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// State of the result lifecycle.
type State string

const (
	// StateAbsent means no result has been observed.
	StateAbsent State = "absent"
	// StateUnseen means a new result is waiting to interrupt the user.
	StateUnseen State = "unseen"
	// StatePresented means the current result's detail has been shown.
	StatePresented State = "presented"
	// StateCleared means the user dismissed the current result. Equivalent
	// to Absent for interrupt purposes.
	StateCleared State = "cleared"
)

// Lifecycle drives a result through Absent, Unseen, Presented and Cleared.
// The interrupt flag and the identity of the last interrupting result are
// persisted, so a result fires its interrupt at most once across restarts
// and an unacknowledged interrupt survives them.
type Lifecycle struct {
	mu      sync.Mutex
	store   *statestore.Store
	logger  *slog.Logger
	state   State
	current *serverapi.Result
}

// NewLifecycle restores the lifecycle from the persisted keys. A persisted
// result with the interrupt flag set re-enters Unseen; with the flag down it
// re-enters Presented so repeat actions stay available.
func NewLifecycle(ctx context.Context, store *statestore.Store, logger *slog.Logger) (*Lifecycle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lifecycle{store: store, logger: logger, state: StateAbsent}

	var r serverapi.Result
	ok, err := store.GetJSON(ctx, statestore.KeyLatestResult, &r)
	if err != nil {
		return nil, fmt.Errorf("popup: restore lifecycle: %w", err)
	}
	if !ok {
		return l, nil
	}

	l.current = &r
	hasNew, _, err := store.Get(ctx, statestore.KeyHasNewResult)
	if err != nil {
		return nil, fmt.Errorf("popup: restore lifecycle: %w", err)
	}
	if hasNew == "true" {
		l.state = StateUnseen
		logger.Info("lifecycle: restored pending interrupt", "result_id", r.ID)
	} else {
		l.state = StatePresented
	}
	return l, nil
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Current returns the result the lifecycle holds, if any.
func (l *Lifecycle) Current() (serverapi.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return serverapi.Result{}, false
	}
	return *l.current, true
}

// Observe feeds one polled result into the lifecycle. A result whose ID
// matches the persisted last-interrupt ID is inert regardless of state; any
// other ID preempts whatever is held and enters Unseen. The returned flag
// reports whether a new interrupt fired.
func (l *Lifecycle) Observe(ctx context.Context, r serverapi.Result) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lastID, _, err := l.store.Get(ctx, statestore.KeyLastResultID)
	if err != nil {
		return false, fmt.Errorf("popup: observe result: %w", err)
	}
	if r.ID == lastID {
		return false, nil
	}

	if err := l.store.SetJSON(ctx, statestore.KeyLatestResult, r); err != nil {
		return false, fmt.Errorf("popup: persist result: %w", err)
	}
	if err := l.store.Set(ctx, statestore.KeyHasNewResult, "true"); err != nil {
		return false, fmt.Errorf("popup: persist interrupt flag: %w", err)
	}
	if err := l.store.Set(ctx, statestore.KeyLastResultID, r.ID); err != nil {
		return false, fmt.Errorf("popup: persist result id: %w", err)
	}

	l.current = &r
	l.state = StateUnseen
	l.logger.Info("lifecycle: new result", "result_id", r.ID, "type", r.Type)
	return true, nil
}

// Present marks the current result's detail as shown. No persistence
// changes: closing and reopening before acknowledgement re-raises the
// interrupt.
func (l *Lifecycle) Present() (serverapi.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return serverapi.Result{}, false
	}
	l.state = StatePresented
	return *l.current, true
}

// Acknowledge lowers the interrupt flag after an email or copy action. The
// result stays held so the action can be repeated.
func (l *Lifecycle) Acknowledge(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Set(ctx, statestore.KeyHasNewResult, "false"); err != nil {
		return fmt.Errorf("popup: acknowledge: %w", err)
	}
	if l.current != nil {
		l.state = StatePresented
	}
	return nil
}

// Clear dismisses the current result. The last-interrupt ID stays persisted
// so re-fetching the same result never re-triggers the interrupt.
func (l *Lifecycle) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Set(ctx, statestore.KeyHasNewResult, "false"); err != nil {
		return fmt.Errorf("popup: clear: %w", err)
	}
	if err := l.store.Delete(ctx, statestore.KeyLatestResult); err != nil {
		return fmt.Errorf("popup: clear: %w", err)
	}
	l.current = nil
	l.state = StateCleared
	return nil
}
