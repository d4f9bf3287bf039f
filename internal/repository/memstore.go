package repository

import (
	"context"
	"sort"
	"sync"

	"seatmap/internal/model"
)

// MemStore is an in-memory SeatStore. It backs local runs without a
// configured database and the test suite. Safe for concurrent use.
type MemStore struct {
	mu    sync.RWMutex
	seats map[model.SeatKey]*string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{seats: make(map[model.SeatKey]*string)}
}

// GetAll returns every stored record sorted by section, row and number
// to match the ordering the SQL store produces.
func (m *MemStore) GetAll(ctx context.Context) ([]model.SeatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]model.SeatRecord, 0, len(m.seats))
	for key, name := range m.seats {
		result = append(result, model.SeatRecord{SeatKey: key, Name: name})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})
	return result, nil
}

// Upsert stores or replaces the occupant name for a key.
func (m *MemStore) Upsert(ctx context.Context, key model.SeatKey, name *string) (*model.SeatRecord, error) {
	var copied *string
	if name != nil {
		v := *name
		copied = &v
	}
	m.mu.Lock()
	m.seats[key] = copied
	m.mu.Unlock()
	return &model.SeatRecord{SeatKey: key, Name: copied}, nil
}

// Delete removes the record for a key, returning the stored record or
// ErrSeatNotFound.
func (m *MemStore) Delete(ctx context.Context, key model.SeatKey) (*model.SeatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.seats[key]
	if !ok {
		return nil, ErrSeatNotFound
	}
	delete(m.seats, key)
	return &model.SeatRecord{SeatKey: key, Name: name}, nil
}
