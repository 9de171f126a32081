// Package observer implements per-surface capture observation: raw mutation
// signals are collapsed by a cooldown window, the surface is extracted once
// per quiet period, and structurally new snapshots are emitted to sinks.
package observer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/capsync/capture/internal/extract"
	"github.com/hazyhaar/capsync/capture/internal/sink"
	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/idgen"
)

// Notifier is the generic subtree-change notification capability injected
// into the observer. The browser implementation drives it from an injected
// MutationObserver via a CDP binding; tests feed the channel directly.
type Notifier interface {
	// C delivers one pulse per raw mutation signal. Closing the channel ends
	// the subscription.
	C() <-chan struct{}
	// Close releases the underlying subscription.
	Close() error
}

// Observer manages the capture pipeline for a single surface stream.
type Observer struct {
	kind      event.Kind
	surface   extract.Surface
	extractor extract.Extractor
	notifier  Notifier
	cd        *cooldown
	arena     *Arena
	out       sink.Sink
	newID     idgen.Generator
	logger    *slog.Logger

	// Article capture is not mutation-driven: it evaluates at fixed delays
	// after the surface loads instead.
	fixedDelays []time.Duration
	timers      []*time.Timer
	evalCh      chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// Config for creating an Observer.
type Config struct {
	Kind     event.Kind
	Surface  extract.Surface
	Notifier Notifier // nil for fixed-delay kinds
	Cooldown time.Duration
	Sink     sink.Sink
	Arena    *Arena // shared across observers; one record per kind
	NewID    idgen.Generator
	Logger   *slog.Logger

	// FixedDelays overrides mutation-driven triggering: one evaluation per
	// delay after Start. Defaults to 2s and 5s for the article kind.
	FixedDelays []time.Duration
}

// New creates an Observer. The extractor is resolved from the kind.
func New(cfg Config) (*Observer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Arena == nil {
		cfg.Arena = NewArena()
	}
	if cfg.NewID == nil {
		cfg.NewID = idgen.Default
	}

	ex, err := extract.ForKind(cfg.Kind)
	if err != nil {
		return nil, err
	}

	delays := cfg.FixedDelays
	if cfg.Kind == event.KindArticle && len(delays) == 0 {
		delays = []time.Duration{2 * time.Second, 5 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Observer{
		kind:        cfg.Kind,
		surface:     cfg.Surface,
		extractor:   ex,
		notifier:    cfg.Notifier,
		cd:          newCooldown(cfg.Cooldown),
		arena:       cfg.Arena,
		out:         cfg.Sink,
		newID:       cfg.NewID,
		logger:      cfg.Logger,
		fixedDelays: delays,
		evalCh:      make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}, nil
}

// SetContext allows the parent watcher to pass its context. Call before Start.
func (o *Observer) SetContext(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
}

// Start begins observing. Mutation-driven kinds consume the notifier through
// the cooldown; fixed-delay kinds schedule their evaluations instead.
func (o *Observer) Start() error {
	for _, d := range o.fixedDelays {
		d := d
		o.timers = append(o.timers, time.AfterFunc(d, func() {
			select {
			case o.evalCh <- struct{}{}:
			default:
			}
		}))
	}

	o.started = true
	go o.loop()

	o.logger.Info("observer: started",
		"kind", o.kind, "url", o.surface.URL(), "cooldown", o.cd.window)
	return nil
}

// Stop tears the observer down: the notifier subscription is released, the
// pending cooldown is cancelled, and no evaluation fires afterwards.
func (o *Observer) Stop() {
	o.cancel()
	for _, t := range o.timers {
		t.Stop()
	}
	if o.notifier != nil {
		o.notifier.Close()
	}
	if o.started {
		<-o.done
	}
}

func (o *Observer) loop() {
	defer close(o.done)
	defer o.cd.stop()

	var notifyC <-chan struct{}
	if o.notifier != nil {
		notifyC = o.notifier.C()
	}

	for {
		select {
		case <-o.ctx.Done():
			return

		case _, ok := <-notifyC:
			if !ok {
				notifyC = nil
				continue
			}
			o.cd.signal()

		case <-o.cd.timerC():
			n := o.cd.fire()
			o.logger.Debug("observer: quiet period elapsed",
				"kind", o.kind, "signals", n)
			o.evaluate()

		case <-o.evalCh:
			o.evaluate()
		}
	}
}

// evaluate runs one extraction and emits the snapshot when it is new for its
// stream. The emission record advances before the send: delivery failure is
// not retried, so an unchanged snapshot is never re-attempted, while any
// later change is.
func (o *Observer) evaluate() {
	snap, err := o.extractor.Extract(o.surface)
	if errors.Is(err, extract.ErrNoCapture) {
		o.logger.Debug("observer: surface not capturable", "kind", o.kind)
		return
	}
	if err != nil {
		o.logger.Warn("observer: extraction failed", "kind", o.kind, "error", err)
		return
	}

	if !o.arena.Accept(snap) {
		o.logger.Debug("observer: snapshot unchanged, suppressed", "kind", o.kind)
		return
	}
	o.arena.Commit(snap)

	ev := event.FromSnapshot(o.newID(), snap)
	if err := o.out.Send(o.ctx, ev); err != nil {
		o.logger.Warn("observer: emit failed", "kind", o.kind, "error", err)
	}
}
