package repository

import (
	"context"

	"seatmap/internal/model"
)

// SeatStore is the persistence contract for seat occupancy. Only seats
// with a stored record appear in GetAll; a seat nobody ever occupied
// has no row at all. Upsert creates or replaces the record for a key;
// Delete removes it and returns what was stored, or ErrSeatNotFound.
type SeatStore interface {
	GetAll(ctx context.Context) ([]model.SeatRecord, error)
	Upsert(ctx context.Context, key model.SeatKey, name *string) (*model.SeatRecord, error)
	Delete(ctx context.Context, key model.SeatKey) (*model.SeatRecord, error)
}
