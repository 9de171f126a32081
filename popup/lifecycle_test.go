package popup

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

func newLifecycle(t *testing.T) (*Lifecycle, *statestore.Store) {
	t.Helper()
	store := statestore.OpenMemory(t)
	lc, err := NewLifecycle(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	return lc, store
}

func result(id, content string) serverapi.Result {
	return serverapi.Result{ID: id, Type: serverapi.ResultText, Content: content}
}

func TestLifecycle_NewResultInterrupts(t *testing.T) {
	lc, _ := newLifecycle(t)
	ctx := context.Background()

	fired, err := lc.Observe(ctx, result("r1", "hello"))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if !fired {
		t.Fatal("first result: want interrupt")
	}
	if lc.State() != StateUnseen {
		t.Fatalf("state: got %s, want unseen", lc.State())
	}
}

func TestLifecycle_SameResultNeverReinterrupts(t *testing.T) {
	lc, _ := newLifecycle(t)
	ctx := context.Background()
	r := result("r1", "hello")

	if _, err := lc.Observe(ctx, r); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	fired, err := lc.Observe(ctx, r)
	if err != nil {
		t.Fatalf("Observe again: %v", err)
	}
	if fired {
		t.Fatal("same result id: interrupt fired twice")
	}
}

func TestLifecycle_DifferentResultPreemptsPresented(t *testing.T) {
	lc, store := newLifecycle(t)
	ctx := context.Background()

	lc.Observe(ctx, result("r1", "one"))
	if _, ok := lc.Present(); !ok {
		t.Fatal("Present: no result held")
	}
	if lc.State() != StatePresented {
		t.Fatalf("state: got %s", lc.State())
	}

	fired, err := lc.Observe(ctx, result("r2", "two"))
	if err != nil {
		t.Fatalf("Observe r2: %v", err)
	}
	if !fired || lc.State() != StateUnseen {
		t.Fatalf("preemption: fired=%v state=%s, want new interrupt", fired, lc.State())
	}

	flag, _, _ := store.Get(ctx, statestore.KeyHasNewResult)
	if flag != "true" {
		t.Errorf("persisted interrupt flag: got %q, want true", flag)
	}
}

func TestLifecycle_ClearedStaysInertForSameResult(t *testing.T) {
	lc, _ := newLifecycle(t)
	ctx := context.Background()
	r := result("r1", "one")

	lc.Observe(ctx, r)
	if err := lc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if lc.State() != StateCleared {
		t.Fatalf("state after clear: got %s", lc.State())
	}

	fired, err := lc.Observe(ctx, r)
	if err != nil {
		t.Fatalf("Observe after clear: %v", err)
	}
	if fired || lc.State() != StateCleared {
		t.Fatalf("cleared result re-fetched: fired=%v state=%s", fired, lc.State())
	}
	if _, ok := lc.Current(); ok {
		t.Error("cleared lifecycle still holds a result")
	}
}

func TestLifecycle_AcknowledgeKeepsResultAvailable(t *testing.T) {
	lc, store := newLifecycle(t)
	ctx := context.Background()

	lc.Observe(ctx, result("r1", "one"))
	lc.Present()
	if err := lc.Acknowledge(ctx); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	if lc.State() != StatePresented {
		t.Fatalf("state: got %s, want presented", lc.State())
	}
	if _, ok := lc.Current(); !ok {
		t.Fatal("acknowledged result no longer held")
	}
	flag, _, _ := store.Get(ctx, statestore.KeyHasNewResult)
	if flag != "false" {
		t.Errorf("persisted flag: got %q, want false", flag)
	}
}

func TestLifecycle_RestoreReraisesPendingInterrupt(t *testing.T) {
	store := statestore.OpenMemory(t)
	ctx := context.Background()

	first, err := NewLifecycle(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	first.Observe(ctx, result("r1", "pending"))

	// A fresh lifecycle over the same store stands in for a restart.
	second, err := NewLifecycle(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewLifecycle after restart: %v", err)
	}
	if second.State() != StateUnseen {
		t.Fatalf("restored state: got %s, want unseen", second.State())
	}
	r, ok := second.Current()
	if !ok || r.ID != "r1" {
		t.Fatalf("restored result: got %+v ok=%v", r, ok)
	}
}

func TestLifecycle_RestoreAcknowledgedIsPresented(t *testing.T) {
	store := statestore.OpenMemory(t)
	ctx := context.Background()

	first, _ := NewLifecycle(ctx, store, nil)
	first.Observe(ctx, result("r1", "done"))
	first.Acknowledge(ctx)

	second, err := NewLifecycle(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	if second.State() != StatePresented {
		t.Fatalf("restored state: got %s, want presented", second.State())
	}
}
