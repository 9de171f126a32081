package statestore

import (
	"context"

	"github.com/hazyhaar/capsync/event"
)

// maxRecentEvents caps the recent-events list.
const maxRecentEvents = 5

// UserEmail returns the configured recipient address, or "" when unset.
func (s *Store) UserEmail(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, KeyUserEmail)
	return v, err
}

// SetUserEmail stores the recipient address.
func (s *Store) SetUserEmail(ctx context.Context, email string) error {
	return s.Set(ctx, KeyUserEmail, email)
}

// Enabled reports whether capture is enabled. Defaults to true when unset.
func (s *Store) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	ok, err := s.GetJSON(ctx, KeyEnabled, &enabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return enabled, nil
}

// SetEnabled toggles capture on or off.
func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	return s.SetJSON(ctx, KeyEnabled, enabled)
}

// EventCount returns the local provisional event counter. This is optimistic
// bookkeeping: the server's event list is authoritative and overwrites the
// displayed value on every poll cycle.
func (s *Store) EventCount(ctx context.Context) (int, error) {
	var n int
	if _, err := s.GetJSON(ctx, KeyEventCount, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// SetEventCount replaces the counter with the server-authoritative value.
func (s *Store) SetEventCount(ctx context.Context, n int) error {
	return s.SetJSON(ctx, KeyEventCount, n)
}

// IncrementEventCount bumps the local provisional counter by one.
func (s *Store) IncrementEventCount(ctx context.Context) error {
	n, err := s.EventCount(ctx)
	if err != nil {
		return err
	}
	return s.SetJSON(ctx, KeyEventCount, n+1)
}

// RecentEvents returns the capped recent-events list, newest first.
func (s *Store) RecentEvents(ctx context.Context) ([]event.Summary, error) {
	var list []event.Summary
	if _, err := s.GetJSON(ctx, KeyRecentEvents, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PushRecentEvent prepends a summary and trims the list to its cap.
func (s *Store) PushRecentEvent(ctx context.Context, sum event.Summary) error {
	list, err := s.RecentEvents(ctx)
	if err != nil {
		return err
	}
	list = append([]event.Summary{sum}, list...)
	if len(list) > maxRecentEvents {
		list = list[:maxRecentEvents]
	}
	return s.SetJSON(ctx, KeyRecentEvents, list)
}
