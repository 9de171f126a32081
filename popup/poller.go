package popup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

// DefaultPollInterval is the server synchronization cadence.
const DefaultPollInterval = 3 * time.Second

// View is the displayed state the poller maintains. Each collection is
// updated independently, so one failed fetch never blanks the rest.
type View struct {
	Online     bool
	EventCount int
	Recent     []event.Summary
	Workflows  []WorkflowEntry
	State      State
}

// Poller synchronizes the view with the automation server on a fixed tick.
// The server's event list overwrites the local provisional counter; the
// newest polled result feeds the lifecycle; the workflow list replaces the
// local one.
type Poller struct {
	api       *serverapi.Client
	store     *statestore.Store
	lifecycle *Lifecycle
	workflows *Workflows
	interval  time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	view View
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the poll cadence.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// NewPoller creates a Poller over an existing lifecycle and workflow store.
func NewPoller(api *serverapi.Client, store *statestore.Store, lc *Lifecycle, wf *Workflows, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		api:       api,
		store:     store,
		lifecycle: lc,
		workflows: wf,
		interval:  DefaultPollInterval,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ticks until the context is cancelled. The first synchronization
// happens immediately, not one interval in.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one synchronization cycle. Exported so callers with their own
// scheduling (tests, one-shot CLI invocations) can drive it directly.
func (p *Poller) Tick(ctx context.Context) {
	online := p.api.Ping(ctx)

	p.mu.Lock()
	p.view.Online = online
	p.mu.Unlock()

	p.syncEvents(ctx)
	p.syncResults(ctx)
	p.syncWorkflows(ctx)

	p.mu.Lock()
	p.view.State = p.lifecycle.State()
	p.mu.Unlock()
}

func (p *Poller) syncEvents(ctx context.Context) {
	records, err := p.api.ListEvents(ctx)
	if err != nil {
		p.logger.Debug("poller: list events failed", "error", err)
		return
	}

	if err := p.store.SetEventCount(ctx, len(records)); err != nil {
		p.logger.Warn("poller: persist event count", "error", err)
	}

	// Newest five, newest first.
	recent := make([]event.Summary, 0, 5)
	for i := len(records) - 1; i >= 0 && len(recent) < 5; i-- {
		recent = append(recent, summarizeRecord(records[i]))
	}

	p.mu.Lock()
	p.view.EventCount = len(records)
	p.view.Recent = recent
	p.mu.Unlock()
}

func (p *Poller) syncResults(ctx context.Context) {
	results, err := p.api.ListResults(ctx)
	if err != nil {
		p.logger.Debug("poller: list results failed", "error", err)
		return
	}
	if len(results) == 0 {
		return
	}

	latest := results[len(results)-1]
	if _, err := p.lifecycle.Observe(ctx, latest); err != nil {
		p.logger.Warn("poller: observe result", "error", err)
	}
}

func (p *Poller) syncWorkflows(ctx context.Context) {
	list, err := p.api.ListWorkflows(ctx)
	if err != nil {
		p.logger.Debug("poller: list workflows failed", "error", err)
		return
	}
	p.workflows.Refresh(list)

	p.mu.Lock()
	p.view.Workflows = p.workflows.ListAll()
	p.mu.Unlock()
}

// View returns a snapshot of the displayed state.
func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.view
	v.Recent = append([]event.Summary(nil), p.view.Recent...)
	v.Workflows = append([]WorkflowEntry(nil), p.view.Workflows...)
	return v
}

func summarizeRecord(rec serverapi.EventRecord) event.Summary {
	subject := rec.Payload[event.FieldTitle]
	if subject == "" {
		subject = rec.Payload[event.FieldSubject]
	}
	if subject == "" {
		subject = rec.Payload["file_name"]
	}
	if subject == "" {
		subject = "Event"
	}
	return event.Summary{
		Subject:   subject,
		Timestamp: rec.Timestamp,
		Type:      event.Kind(rec.Payload["event_type"]),
	}
}
