// Package repository implements the change store the seat map is
// persisted in. Handlers depend on the SeatStore interface only; the
// MySQL-backed SeatRepo is the production implementation and MemStore
// backs tests and DB-less local runs. Sentinel errors let handlers
// map storage outcomes onto HTTP codes without inspecting SQL errors.
package repository

import "errors"

// ErrSeatNotFound is returned when a delete addresses a seat that has
// no stored record. Clearing an already-free seat surfaces this;
// callers are expected to treat it as non-fatal.
var ErrSeatNotFound = errors.New("seat not found")
