package observer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/capsync/capture/internal/sink"
	"github.com/hazyhaar/capsync/event"
)

// fakeSurface answers selector queries from fixed maps.
type fakeSurface struct {
	mu    sync.Mutex
	url   string
	texts map[string]string
	htmls map[string]string
	attrs map[string]string
}

func (f *fakeSurface) URL() string { return f.url }

func (f *fakeSurface) Text(sel string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[sel]
}

func (f *fakeSurface) HTML(sel string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.htmls[sel]
}

func (f *fakeSurface) Attr(sel, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrs[sel+"@"+name]
}

func (f *fakeSurface) setText(sel, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[sel] = v
}

func composeSurface(body string) *fakeSurface {
	return &fakeSurface{
		url: "https://mail.example.com/#compose",
		htmls: map[string]string{
			`[role="dialog"]`: `<div role="dialog">...</div>`,
		},
		texts: map[string]string{
			`[role="dialog"] [name="to"]`:                              "a@example.com",
			`[role="dialog"] [name="subjectbox"]`:                      "hello",
			`[role="dialog"] [contenteditable="true"][role="textbox"]`: body,
		},
		attrs: map[string]string{},
	}
}

// chanNotifier adapts a bare channel to the Notifier interface.
type chanNotifier struct{ ch chan struct{} }

func (n *chanNotifier) C() <-chan struct{} { return n.ch }
func (n *chanNotifier) Close() error       { return nil }

// countingSink records every delivered event.
type countingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *countingSink) Send(_ context.Context, ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *countingSink) Close() error { return nil }

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

var _ sink.Sink = (*countingSink)(nil)

func startObserver(t *testing.T, surface *fakeSurface, notifier Notifier, cd time.Duration) (*Observer, *countingSink) {
	t.Helper()
	out := &countingSink{}
	obs, err := New(Config{
		Kind:     event.KindEmailCompose,
		Surface:  surface,
		Notifier: notifier,
		Cooldown: cd,
		Sink:     out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := obs.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(obs.Stop)
	return obs, out
}

func TestObserver_BurstCollapsesToOneEvaluation(t *testing.T) {
	surface := composeSurface("drafting a longer message")
	notifier := &chanNotifier{ch: make(chan struct{}, 16)}
	_, out := startObserver(t, surface, notifier, 50*time.Millisecond)

	for i := 0; i < 10; i++ {
		notifier.ch <- struct{}{}
	}

	time.Sleep(250 * time.Millisecond)
	if got := out.count(); got != 1 {
		t.Fatalf("burst of 10 signals: got %d emissions, want 1", got)
	}
}

func TestObserver_UnchangedSnapshotSuppressed(t *testing.T) {
	surface := composeSurface("drafting a longer message")
	notifier := &chanNotifier{ch: make(chan struct{}, 16)}
	_, out := startObserver(t, surface, notifier, 30*time.Millisecond)

	notifier.ch <- struct{}{}
	time.Sleep(150 * time.Millisecond)

	// Same fields again: a new quiet period but no structural change.
	notifier.ch <- struct{}{}
	time.Sleep(150 * time.Millisecond)

	if got := out.count(); got != 1 {
		t.Fatalf("unchanged re-evaluation: got %d emissions, want 1", got)
	}

	// One field changes: the next quiet period emits again.
	surface.setText(`[role="dialog"] [contenteditable="true"][role="textbox"]`, "drafting a longer message!")
	notifier.ch <- struct{}{}
	time.Sleep(150 * time.Millisecond)

	if got := out.count(); got != 2 {
		t.Fatalf("changed snapshot: got %d emissions, want 2", got)
	}
}

func TestObserver_NoEvaluationAfterStop(t *testing.T) {
	surface := composeSurface("drafting a longer message")
	notifier := &chanNotifier{ch: make(chan struct{}, 16)}
	out := &countingSink{}
	obs, err := New(Config{
		Kind:     event.KindEmailCompose,
		Surface:  surface,
		Notifier: notifier,
		Cooldown: 30 * time.Millisecond,
		Sink:     out,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := obs.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	notifier.ch <- struct{}{}
	obs.Stop() // teardown before the cooldown elapses

	time.Sleep(150 * time.Millisecond)
	if got := out.count(); got != 0 {
		t.Fatalf("evaluation fired after teardown: got %d emissions", got)
	}
}

func TestObserver_FixedDelayEvaluations(t *testing.T) {
	surface := &fakeSurface{
		url: "https://blog.example.com/post",
		htmls: map[string]string{
			`article`: "<article><p>" + longParagraph(150) + "</p></article>",
		},
		texts: map[string]string{`h1`: "A Post"},
		attrs: map[string]string{},
	}

	out := &countingSink{}
	obs, err := New(Config{
		Kind:        event.KindArticle,
		Surface:     surface,
		Sink:        out,
		FixedDelays: []time.Duration{20 * time.Millisecond, 60 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := obs.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(obs.Stop)

	time.Sleep(200 * time.Millisecond)

	// Two evaluations ran, but the second saw identical fields: one emission.
	if got := out.count(); got != 1 {
		t.Fatalf("fixed-delay capture: got %d emissions, want 1", got)
	}
	if out.events[0].EventType != event.KindArticle {
		t.Errorf("event type: got %s", out.events[0].EventType)
	}
}

func longParagraph(n int) string {
	const word = "content "
	s := ""
	for len(s) < n {
		s += word
	}
	return s
}
