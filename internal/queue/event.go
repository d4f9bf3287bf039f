// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatUpdateEvent is published after every successful seat mutation.
// It gives downstream consumers (audit log, analytics) a self-contained
// record of who sits where without querying the primary database. Name
// is nil when the mutation cleared the seat.
type SeatUpdateEvent struct {
	Section   string  `json:"section"`
	Row       string  `json:"row"`
	Number    uint32  `json:"number"`
	Block     string  `json:"block"`
	Name      *string `json:"name"`
	UpdatedAt string  `json:"updated_at"`
}
