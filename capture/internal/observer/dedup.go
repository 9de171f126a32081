package observer

import (
	"sync"

	"github.com/hazyhaar/capsync/event"
)

// Arena suppresses no-op re-emissions. It keeps one emission record per
// capture kind: the last snapshot committed for that stream. A snapshot is
// accepted iff its fields differ structurally from the committed record
// (or no record exists yet).
//
// Commit advances the record whether or not the subsequent network send
// succeeds. A permanently unreachable server therefore never causes unbounded
// re-emission of an unchanged snapshot, while a genuinely changed snapshot is
// always attempted exactly once per change.
type Arena struct {
	mu      sync.Mutex
	records map[event.Kind]event.Snapshot
}

// NewArena creates an empty emission-record arena.
func NewArena() *Arena {
	return &Arena{records: make(map[event.Kind]event.Snapshot)}
}

// Accept reports whether snap is new for its kind's stream.
func (a *Arena) Accept(snap event.Snapshot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, ok := a.records[snap.Kind]
	if !ok {
		return true
	}
	return !snap.SameFields(last)
}

// Commit advances the stream's emission record to snap. Safe under repeated
// identical input: committing an equal snapshot is a no-op in effect.
func (a *Arena) Commit(snap event.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[snap.Kind] = snap.Clone()
}

// Last returns the committed record for a kind, for inspection in tests.
func (a *Arena) Last(kind event.Kind) (event.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.records[kind]
	return snap, ok
}
