package model

// EventSeatUpdate is the only event type carried on the broadcast
// stream. A record with a nil Name signals that the seat was cleared.
const EventSeatUpdate = "SEAT_UPDATE"

// ChangeEvent is the frame fanned out to every subscribed viewer when a
// seat changes. Deletions are not a separate kind: they arrive as a
// SEAT_UPDATE whose record has no name.
type ChangeEvent struct {
	Type string     `json:"type"`
	Seat SeatRecord `json:"seat"`
}

// NewSeatUpdate builds a ChangeEvent for the given record.
func NewSeatUpdate(rec SeatRecord) ChangeEvent {
	return ChangeEvent{Type: EventSeatUpdate, Seat: rec}
}
