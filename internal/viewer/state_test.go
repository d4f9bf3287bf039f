package viewer

import (
	"testing"

	"seatmap/internal/model"
)

var seatA3 = model.SeatKey{Section: "gold", Row: "A", Number: 3, Block: "left"}

func update(key model.SeatKey, name string) model.ChangeEvent {
	rec := model.SeatRecord{SeatKey: key}
	if name != "" {
		rec.Name = &name
	}
	return model.NewSeatUpdate(rec)
}

func TestReconciliationSupersedesPending(t *testing.T) {
	v := NewViewState()
	v.SetPending(seatA3, "A")

	occupied := v.Apply(update(seatA3, "B"))
	if !occupied {
		t.Error("expected the event to mark the seat occupied")
	}
	if name, ok := v.Authoritative(seatA3); !ok || name != "B" {
		t.Errorf("authoritative = %q, %v; want B", name, ok)
	}
	if _, ok := v.Pending(seatA3); ok {
		t.Error("pending entry survived reconciliation")
	}
	if name, _ := v.Effective(seatA3); name != "B" {
		t.Errorf("effective = %q, want B", name)
	}
}

func TestClearEventRemovesKeyEntirely(t *testing.T) {
	v := NewViewState()
	v.Apply(update(seatA3, "Alice"))

	if occupied := v.Apply(update(seatA3, "")); occupied {
		t.Error("expected the clear event to report the seat free")
	}
	if _, ok := v.Authoritative(seatA3); ok {
		t.Error("cleared key still present in authoritative map")
	}
	if _, occupied := v.Effective(seatA3); occupied {
		t.Error("cleared seat still displays as occupied")
	}
}

func TestPendingOverlaysAuthoritative(t *testing.T) {
	v := NewViewState()
	v.Apply(update(seatA3, "Alice"))
	v.SetPending(seatA3, "Bob")

	if name, _ := v.Effective(seatA3); name != "Bob" {
		t.Errorf("effective = %q, want the pending overlay Bob", name)
	}

	v.ClearPending(seatA3)
	if name, _ := v.Effective(seatA3); name != "Alice" {
		t.Errorf("after revert, effective = %q, want Alice", name)
	}
}

func TestSeedSkipsFreeSeats(t *testing.T) {
	v := NewViewState()
	alice := "Alice"
	v.Seed([]model.SeatRecord{
		{SeatKey: seatA3, Name: &alice},
		{SeatKey: model.SeatKey{Section: "gold", Row: "A", Number: 4, Block: "left"}},
	})
	if len(v.Occupied()) != 1 {
		t.Errorf("occupied map has %d entries, want 1", len(v.Occupied()))
	}
}
