package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultKeepalive is the cadence of keepalive frames on the event
// stream. Keepalives flow independently of seat traffic so clients and
// intermediary proxies can detect half-open connections.
const DefaultKeepalive = 30 * time.Second

// Stream handles GET /v1/seats/stream, the long-lived server-to-client
// push channel. Each connection gets its own hub subscription; frames
// are either the literal keepalive marker or one JSON ChangeEvent. Any
// write failure ends the connection, which deregisters the subscriber —
// a broken pipe usually surfaces here before the transport notices.
func (h *SeatHandler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	// The initial keepalive confirms to the client that the stream is
	// open; viewers re-fetch the snapshot when they see it.
	if err := writeKeepalive(w); err != nil {
		return nil
	}

	every := h.Keepalive
	if every <= 0 {
		every = DefaultKeepalive
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := writeKeepalive(w); err != nil {
				return nil
			}
		case ev, ok := <-sub.C():
			if !ok {
				// The hub dropped us, most likely for falling behind.
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeKeepalive(w *echo.Response) error {
	if _, err := fmt.Fprint(w, "data: keepalive\n\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}
