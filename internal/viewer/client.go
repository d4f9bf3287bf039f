package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"seatmap/internal/model"
)

// Client speaks the seat API over HTTP: snapshot reads, upserts, clears
// and the long-lived event stream.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Client for the given server base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// FetchSeats retrieves the full seat snapshot.
func (c *Client) FetchSeats(ctx context.Context) ([]model.SeatRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/seats", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot fetch: unexpected status %d", resp.StatusCode)
	}
	var records []model.SeatRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("snapshot fetch: decode: %w", err)
	}
	return records, nil
}

type mutateBody struct {
	Section string  `json:"section"`
	Row     string  `json:"row"`
	Number  uint32  `json:"number"`
	Block   string  `json:"block"`
	Name    *string `json:"name"`
}

// UpsertSeat commits an occupant name for a seat. An empty name is sent
// as null, which clears the seat server-side.
func (c *Client) UpsertSeat(ctx context.Context, key model.SeatKey, name string) error {
	body := mutateBody{Section: key.Section, Row: key.Row, Number: key.Number, Block: key.Block}
	if name != "" {
		body.Name = &name
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/seats", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("seat update: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ClearSeat removes a seat's record. A 404 means the seat was already
// free; alreadyFree is true in that case and the call still succeeds,
// but no change event will be broadcast for it.
func (c *Client) ClearSeat(ctx context.Context, key model.SeatKey) (alreadyFree bool, err error) {
	body := mutateBody{Section: key.Section, Row: key.Row, Number: key.Number, Block: key.Block}
	payload, err := json.Marshal(body)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/v1/seats", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusNotFound:
		return true, nil
	default:
		return false, fmt.Errorf("seat clear: unexpected status %d", resp.StatusCode)
	}
}

// OpenStream opens the SSE event stream. The returned body stays open
// until the server drops the connection or ctx is cancelled; a non-200
// response is returned as an error.
func (c *Client) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/seats/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
