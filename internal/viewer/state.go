// Package viewer implements the client side of the live seat map: the
// per-session view state, the HTTP API client, and the synchronization
// state machine that keeps a viewer consistent with the server through
// snapshots, the broadcast stream and optimistic local edits.
package viewer

import (
	"sync"

	"seatmap/internal/model"
)

// ViewState holds the two maps a viewer session lives by.
//
// authoritative carries the last value confirmed by a snapshot fetch or
// an incoming change event; a key absent from it means the seat is
// free. pending carries local edits that have not been confirmed yet
// and overlays authoritative for display only.
//
// authoritative is never touched by a local edit. It changes through
// Seed (snapshot) and Apply (change event) alone, and Apply also drops
// any pending entry for the key: a confirmed value supersedes whatever
// the viewer typed, including the viewer's own echoed write.
type ViewState struct {
	mu            sync.RWMutex
	authoritative map[model.SeatKey]string
	pending       map[model.SeatKey]string
}

// NewViewState creates an empty view state.
func NewViewState() *ViewState {
	return &ViewState{
		authoritative: make(map[model.SeatKey]string),
		pending:       make(map[model.SeatKey]string),
	}
}

// Seed replaces the authoritative map with the contents of a full
// snapshot. Records without an occupant are skipped; absence is what
// encodes a free seat. Pending edits survive a re-seed, the next echo
// or commit outcome clears them.
func (v *ViewState) Seed(records []model.SeatRecord) {
	next := make(map[model.SeatKey]string, len(records))
	for _, rec := range records {
		if rec.Occupied() {
			next[rec.SeatKey] = *rec.Name
		}
	}
	v.mu.Lock()
	v.authoritative = next
	v.mu.Unlock()
}

// Apply reconciles one change event. A nil name removes the key from
// authoritative entirely; any pending entry for the key is dropped
// unconditionally. The return value reports whether the event set an
// occupant (true) or cleared the seat (false), for notification text.
func (v *ViewState) Apply(ev model.ChangeEvent) (occupied bool) {
	key := ev.Seat.SeatKey
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pending, key)
	if ev.Seat.Occupied() {
		v.authoritative[key] = *ev.Seat.Name
		return true
	}
	delete(v.authoritative, key)
	return false
}

// SetPending records a local edit for display ahead of confirmation.
func (v *ViewState) SetPending(key model.SeatKey, name string) {
	v.mu.Lock()
	v.pending[key] = name
	v.mu.Unlock()
}

// Pending returns the unconfirmed edit for a key, if any.
func (v *ViewState) Pending(key model.SeatKey) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	name, ok := v.pending[key]
	return name, ok
}

// ClearPending drops the unconfirmed edit for a key, reverting the
// display to the authoritative value.
func (v *ViewState) ClearPending(key model.SeatKey) {
	v.mu.Lock()
	delete(v.pending, key)
	v.mu.Unlock()
}

// Effective resolves what the viewer should display for a key: the
// pending overlay when present, otherwise the authoritative value. The
// second return is false when the seat is free.
func (v *ViewState) Effective(key model.SeatKey) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if name, ok := v.pending[key]; ok {
		return name, name != ""
	}
	name, ok := v.authoritative[key]
	return name, ok
}

// Authoritative returns the confirmed value for a key, if any.
func (v *ViewState) Authoritative(key model.SeatKey) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	name, ok := v.authoritative[key]
	return name, ok
}

// Occupied returns a copy of the authoritative occupancy map.
func (v *ViewState) Occupied() map[model.SeatKey]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[model.SeatKey]string, len(v.authoritative))
	for k, name := range v.authoritative {
		out[k] = name
	}
	return out
}
