package model

import "fmt"

// SeatKey is the composite identity of a seat in the house. All four
// fields together are the unique key; none of them is meaningful alone.
// Keys are immutable: once a seat exists in the seating layout it is
// never renumbered or moved between blocks.
//
// Fields:
//  Section – pricing tier (gold, silver, bronze).
//  Row     – row letter within the section.
//  Number  – seat number within the row (counted across blocks).
//  Block   – physical block (left, center, right, ...).
type SeatKey struct {
	Section string `json:"section"`
	Row     string `json:"row"`
	Number  uint32 `json:"number"`
	Block   string `json:"block"`
}

// Valid reports whether every component of the key is present. The wire
// format carries no numeric seat IDs; a key missing any component cannot
// address a seat.
func (k SeatKey) Valid() bool {
	return k.Section != "" && k.Row != "" && k.Number > 0 && k.Block != ""
}

// String renders the canonical section-row-number-block form used as a
// map key and in log lines, e.g. "gold-A-3-left".
func (k SeatKey) String() string {
	return fmt.Sprintf("%s-%s-%d-%s", k.Section, k.Row, k.Number, k.Block)
}

// Label is the short human-facing form shown in notifications, e.g. "A-3".
func (k SeatKey) Label() string {
	return fmt.Sprintf("%s-%d", k.Row, k.Number)
}

// SeatRecord is one seat together with its occupancy. Name is nil when
// the seat is free; the key never changes after creation.
type SeatRecord struct {
	SeatKey
	Name *string `json:"name"`
}

// Occupied reports whether the seat currently has an occupant.
func (r SeatRecord) Occupied() bool {
	return r.Name != nil && *r.Name != ""
}
