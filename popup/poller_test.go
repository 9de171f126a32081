package popup

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/capsync/devserver"
	"github.com/hazyhaar/capsync/event"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

func newPoller(t *testing.T) (*Poller, *devserver.Server, *serverapi.Client, *statestore.Store) {
	t.Helper()
	dev := devserver.New(nil)
	ts := httptest.NewServer(dev.Router())
	t.Cleanup(ts.Close)

	store := statestore.OpenMemory(t)
	api := serverapi.New(ts.URL)
	lc, err := NewLifecycle(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	wf := NewWorkflows(api, store, nil)
	return NewPoller(api, store, lc, wf, nil), dev, api, store
}

func eventWithTitle(title string) event.Event {
	return event.Event{
		ID:        "ev-" + title,
		EventType: event.KindArticle,
		URL:       "https://blog.example.com/" + title,
		Fields:    map[string]string{event.FieldTitle: title},
	}
}

func TestPoller_ServerCountIsAuthoritative(t *testing.T) {
	p, _, _, store := newPoller(t)
	ctx := context.Background()

	// Local optimistic counter is ahead of the server.
	store.SetEventCount(ctx, 7)

	p.Tick(ctx)
	if v := p.View(); v.EventCount != 0 {
		t.Fatalf("event count: got %d, want server value 0", v.EventCount)
	}
	if n, _ := store.EventCount(ctx); n != 0 {
		t.Fatalf("persisted count: got %d, want 0", n)
	}
}

func TestPoller_OfflineLeavesViewUntouched(t *testing.T) {
	p, dev, _, _ := newPoller(t)
	ctx := context.Background()

	dev.PushResult(serverapi.Result{ID: "r1", Type: serverapi.ResultText, Content: "one"})
	p.Tick(ctx)
	before := p.View()
	if before.State != StateUnseen {
		t.Fatalf("state: got %s", before.State)
	}

	// Point the poller at a dead server.
	p.api = serverapi.New("http://127.0.0.1:1")

	p.Tick(ctx)
	after := p.View()
	if after.Online {
		t.Error("dead server still reported online")
	}
	if after.EventCount != before.EventCount || after.State != before.State {
		t.Errorf("offline tick mutated view: before=%+v after=%+v", before, after)
	}
}

// One interrupt per result identity across poll cycles: re-fetching the same
// result never duplicates the interrupt, clearing is durable, and only a new
// identity interrupts again.
func TestPoller_ResultLifecycleAcrossTicks(t *testing.T) {
	p, dev, _, _ := newPoller(t)
	ctx := context.Background()

	dev.PushResult(serverapi.Result{ID: "r1", Type: serverapi.ResultText, Content: "first"})

	p.Tick(ctx)
	if s := p.lifecycle.State(); s != StateUnseen {
		t.Fatalf("tick 1: got %s, want unseen", s)
	}

	p.Tick(ctx)
	if s := p.lifecycle.State(); s != StateUnseen {
		t.Fatalf("tick 2 same result: got %s, want still unseen", s)
	}

	if err := p.lifecycle.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	p.Tick(ctx)
	if s := p.lifecycle.State(); s != StateCleared {
		t.Fatalf("tick 3 after clear: got %s, want cleared", s)
	}

	dev.PushResult(serverapi.Result{ID: "r2", Type: serverapi.ResultText, Content: "second"})
	p.Tick(ctx)
	if s := p.lifecycle.State(); s != StateUnseen {
		t.Fatalf("tick 4 new result: got %s, want unseen", s)
	}
	r, ok := p.lifecycle.Current()
	if !ok || r.ID != "r2" {
		t.Fatalf("current: got %+v ok=%v, want r2", r, ok)
	}
}

func TestPoller_RecentEventsNewestFirstCappedAtFive(t *testing.T) {
	p, _, api, _ := newPoller(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		if err := api.PostEvent(ctx, eventWithTitle(title)); err != nil {
			t.Fatalf("PostEvent: %v", err)
		}
	}

	p.Tick(ctx)
	v := p.View()
	if v.EventCount != 7 {
		t.Fatalf("event count: got %d, want 7", v.EventCount)
	}
	if len(v.Recent) != 5 {
		t.Fatalf("recent: got %d entries, want 5", len(v.Recent))
	}
	if v.Recent[0].Subject != "g" || v.Recent[4].Subject != "c" {
		t.Errorf("recent order: got %q .. %q, want g .. c",
			v.Recent[0].Subject, v.Recent[4].Subject)
	}
}

func TestPoller_WorkflowRefreshOverwritesToggle(t *testing.T) {
	p, _, api, _ := newPoller(t)
	ctx := context.Background()

	if err := api.CreateWorkflow(ctx, "watch my inbox and email results to me@example.com"); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	p.Tick(ctx)
	list := p.workflows.ListAll()
	if len(list) != 1 || !list[0].Active {
		t.Fatalf("after refresh: got %+v", list)
	}

	p.workflows.Toggle(list[0].ID)
	if p.workflows.ListAll()[0].Active {
		t.Fatal("toggle: still active")
	}

	// The next refresh wins over the local toggle.
	p.Tick(ctx)
	if !p.workflows.ListAll()[0].Active {
		t.Fatal("refresh did not overwrite local toggle")
	}
}
