package handler // handler package contains the seat occupancy endpoints

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"seatmap/internal/hub"
	"seatmap/internal/model"
	"seatmap/internal/queue"
	"seatmap/internal/repository"
	queue_publisher "seatmap/internal/service"
)

// SeatHandler serves the seat snapshot and the two mutating endpoints.
// Every successful mutation is pushed into the hub so all subscribed
// viewers converge on the change; the hub publish is the single path by
// which viewers learn about writes, including their own.
type SeatHandler struct {
	Store repository.SeatStore
	Hub   *hub.Hub
	// Audit enables best-effort publishing of seat updates to the
	// message broker. Off in tests and DB-less local runs.
	Audit bool
	// Keepalive overrides the event-stream keepalive cadence; zero
	// means DefaultKeepalive. Tests shrink it.
	Keepalive time.Duration
}

// NewSeatHandler wires the handler with its store and hub.
func NewSeatHandler(store repository.SeatStore, h *hub.Hub) *SeatHandler {
	return &SeatHandler{Store: store, Hub: h}
}

// seatBody is the request body shared by POST and DELETE. The four
// identity fields address the seat; name is only read on POST and a
// null or absent name clears the occupant.
type seatBody struct {
	Section string  `json:"section"`
	Row     string  `json:"row"`
	Number  uint32  `json:"number"`
	Block   string  `json:"block"`
	Name    *string `json:"name"`
}

func (b seatBody) key() model.SeatKey {
	return model.SeatKey{Section: b.Section, Row: b.Row, Number: b.Number, Block: b.Block}
}

// GetSeats handles GET /v1/seats and returns the full snapshot of
// stored seat records. Seats nobody occupies may be absent entirely;
// clients treat absence as free.
func (h *SeatHandler) GetSeats(c echo.Context) error {
	records, err := h.Store.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error fetching seats"})
	}
	if records == nil {
		records = []model.SeatRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// UpsertSeat handles POST /v1/seats. It validates the composite key,
// writes through the store and fans the resulting record out to every
// subscriber. The response echoes the stored record.
func (h *SeatHandler) UpsertSeat(c echo.Context) error {
	var body seatBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	key := body.key()
	if !key.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required fields"})
	}

	name := body.Name
	if name != nil && *name == "" {
		// An empty string clears the seat the same way null does.
		name = nil
	}

	rec, err := h.Store.Upsert(c.Request().Context(), key, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error updating seat"})
	}

	h.Hub.Publish(model.NewSeatUpdate(*rec))
	h.publishAudit(*rec)

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "seat": rec})
}

// ClearSeat handles DELETE /v1/seats. The seat's record is removed and
// a SEAT_UPDATE with a null name is broadcast so viewers mark the seat
// free. Clearing a seat that has no record yields 404; callers treat
// that as already-clear rather than a failure.
func (h *SeatHandler) ClearSeat(c echo.Context) error {
	var body seatBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	key := body.key()
	if !key.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required fields"})
	}

	_, err := h.Store.Delete(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "error deleting seat"})
	}

	cleared := model.SeatRecord{SeatKey: key}
	h.Hub.Publish(model.NewSeatUpdate(cleared))
	h.publishAudit(cleared)

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// publishAudit sends the update to the audit queue in the background.
// Failures are logged by the publisher and otherwise ignored; the
// broker is not on the critical path of an edit.
func (h *SeatHandler) publishAudit(rec model.SeatRecord) {
	if !h.Audit {
		return
	}
	ev := queue.SeatUpdateEvent{
		Section:   rec.Section,
		Row:       rec.Row,
		Number:    rec.Number,
		Block:     rec.Block,
		Name:      rec.Name,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		_ = queue_publisher.PublishSeatUpdate(context.Background(), ev)
	}()
}
