package repository // repository defines data access for seat occupancy

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"seatmap/internal/model"
)

// SeatRepo persists seat occupancy in MySQL. The seats table carries a
// unique index over (section, row_label, seat_number, block); the
// composite key is the only identity a record has.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// GetAll retrieves every stored seat record ordered by section, row and
// number. Free seats that were never written simply have no row.
func (r *SeatRepo) GetAll(ctx context.Context) ([]model.SeatRecord, error) {
	const q = `SELECT section, row_label, seat_number, block, occupant_name
	           FROM seats
	           ORDER BY section, row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.SeatRecord
	for rows.Next() {
		var rec model.SeatRecord
		var name sql.NullString
		if err := rows.Scan(&rec.Section, &rec.Row, &rec.Number, &rec.Block, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			rec.Name = &name.String
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert creates the record for a key or replaces its occupant name.
// A nil name is stored as NULL, which marks the seat free.
func (r *SeatRepo) Upsert(ctx context.Context, key model.SeatKey, name *string) (*model.SeatRecord, error) {
	const q = `INSERT INTO seats (section, row_label, seat_number, block, occupant_name)
	           VALUES (?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE occupant_name = VALUES(occupant_name), updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, q, key.Section, key.Row, key.Number, key.Block, name); err != nil {
		return nil, err
	}
	return &model.SeatRecord{SeatKey: key, Name: name}, nil
}

// Delete removes the record for a key and returns what was stored.
// Returns ErrSeatNotFound when the seat had no record.
func (r *SeatRepo) Delete(ctx context.Context, key model.SeatKey) (*model.SeatRecord, error) {
	const sel = `SELECT occupant_name FROM seats
	             WHERE section = ? AND row_label = ? AND seat_number = ? AND block = ?`
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, sel, key.Section, key.Row, key.Number, key.Block).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}

	const del = `DELETE FROM seats
	             WHERE section = ? AND row_label = ? AND seat_number = ? AND block = ?`
	if _, err := r.db.ExecContext(ctx, del, key.Section, key.Row, key.Number, key.Block); err != nil {
		return nil, err
	}

	rec := &model.SeatRecord{SeatKey: key}
	if name.Valid {
		rec.Name = &name.String
	}
	return rec, nil
}
