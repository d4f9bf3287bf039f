package viewer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"seatmap/internal/handler"
	"seatmap/internal/hub"
	"seatmap/internal/model"
	"seatmap/internal/repository"
)

// countingStore wraps a SeatStore and counts mutating calls.
type countingStore struct {
	repository.SeatStore
	upserts atomic.Int64
	deletes atomic.Int64
}

func (c *countingStore) Upsert(ctx context.Context, key model.SeatKey, name *string) (*model.SeatRecord, error) {
	c.upserts.Add(1)
	return c.SeatStore.Upsert(ctx, key, name)
}

func (c *countingStore) Delete(ctx context.Context, key model.SeatKey) (*model.SeatRecord, error) {
	c.deletes.Add(1)
	return c.SeatStore.Delete(ctx, key)
}

// notifications records what a session tells the user.
type notifications struct {
	mu    sync.Mutex
	lines []string
}

func (n *notifications) notify(severity, message string) {
	n.mu.Lock()
	n.lines = append(n.lines, severity+": "+message)
	n.mu.Unlock()
}

func (n *notifications) contains(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, line := range n.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// newLiveServer stands up the real server stack: echo routes, memory
// store, one hub.
func newLiveServer(t *testing.T) (*httptest.Server, *countingStore, *hub.Hub) {
	t.Helper()
	store := &countingStore{SeatStore: repository.NewMemStore()}
	hb := hub.New()
	sh := handler.NewSeatHandler(store, hb)
	sh.Keepalive = 100 * time.Millisecond

	e := echo.New()
	e.GET("/v1/seats", sh.GetSeats)
	e.POST("/v1/seats", sh.UpsertSeat)
	e.DELETE("/v1/seats", sh.ClearSeat)
	e.GET("/v1/seats/stream", sh.Stream)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, store, hb
}

func startTestSession(t *testing.T, url string, n *notifications) *Session {
	t.Helper()
	opts := Options{
		DebounceDelay:  80 * time.Millisecond,
		ReconnectDelay: 50 * time.Millisecond,
	}
	if n != nil {
		opts.Notify = n.notify
	}
	s := Start(NewClient(url), opts)
	t.Cleanup(s.Terminate)
	return s
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionReachesSynced(t *testing.T) {
	srv, _, _ := newLiveServer(t)
	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")
}

func TestDebounceCoalescesRapidEdits(t *testing.T) {
	srv, store, _ := newLiveServer(t)
	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Edit(seatA3, "Al")
	s.Edit(seatA3, "Ali")
	s.Edit(seatA3, "Alice")

	// The overlay shows the newest value well before the debounce
	// window (80ms) lets anything commit.
	waitFor(t, func() bool {
		name, _ := s.View().Effective(seatA3)
		return name == "Alice"
	}, "optimistic overlay")

	waitFor(t, func() bool {
		name, ok := s.View().Authoritative(seatA3)
		return ok && name == "Alice"
	}, "echo to confirm the edit")

	if got := store.upserts.Load(); got != 1 {
		t.Errorf("three rapid edits produced %d writes, want 1", got)
	}
	// The echo also cleared the pending overlay.
	waitFor(t, func() bool {
		_, ok := s.View().Pending(seatA3)
		return !ok
	}, "pending overlay cleanup")

	// Quiet afterwards: no stray timer fires a second write.
	time.Sleep(200 * time.Millisecond)
	if got := store.upserts.Load(); got != 1 {
		t.Errorf("write count grew to %d after settling", got)
	}
}

func TestEndToEndTwoViewers(t *testing.T) {
	srv, _, _ := newLiveServer(t)

	v1 := startTestSession(t, srv.URL, nil)
	n2 := &notifications{}
	v2 := startTestSession(t, srv.URL, n2)
	waitFor(t, func() bool {
		return v1.State() == StateSynced && v2.State() == StateSynced
	}, "both sessions SYNCED")

	v1.Edit(seatA3, "Alice")

	// Viewer 1 sees its own edit as soon as the overlay lands, long
	// before the commit round-trips.
	waitFor(t, func() bool {
		name, _ := v1.View().Effective(seatA3)
		return name == "Alice"
	}, "originator overlay")

	// Viewer 2 converges through the broadcast and is told about it.
	waitFor(t, func() bool {
		name, ok := v2.View().Authoritative(seatA3)
		return ok && name == "Alice"
	}, "second viewer convergence")
	waitFor(t, func() bool {
		return n2.contains("Seat A-3 was updated")
	}, "second viewer notification")
}

func TestClearGoesThroughDeleteEndpoint(t *testing.T) {
	srv, store, _ := newLiveServer(t)
	alice := "Alice"
	if _, err := store.SeatStore.Upsert(context.Background(), seatA3, &alice); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n := &notifications{}
	s := startTestSession(t, srv.URL, n)
	waitFor(t, func() bool {
		_, ok := s.View().Authoritative(seatA3)
		return s.State() == StateSynced && ok
	}, "seeded SYNCED state")

	s.Edit(seatA3, "")

	waitFor(t, func() bool {
		_, ok := s.View().Authoritative(seatA3)
		return !ok
	}, "seat to clear")
	if got := store.deletes.Load(); got != 1 {
		t.Errorf("clear used %d delete calls, want 1", got)
	}
	waitFor(t, func() bool { return n.contains("Seat A-3 was cleared") }, "clear notification")
}

func TestClearOfFreeSeatDropsPendingWithoutEcho(t *testing.T) {
	srv, store, _ := newLiveServer(t)
	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Edit(seatA3, "")

	// The 404 produces no broadcast, so the pending entry must be
	// dropped at commit time instead of waiting for an echo.
	waitFor(t, func() bool {
		_, ok := s.View().Pending(seatA3)
		return store.deletes.Load() == 1 && !ok
	}, "pending cleanup after no-echo clear")
}

func TestReconnectAfterStreamFailure(t *testing.T) {
	var snapshots, streams atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/seats", func(w http.ResponseWriter, r *http.Request) {
		snapshots.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("/v1/seats/stream", func(w http.ResponseWriter, r *http.Request) {
		n := streams.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: keepalive\n\n")
		w.(http.Flusher).Flush()
		if n == 1 {
			// First connection dies right after confirming.
			return
		}
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := startTestSession(t, srv.URL, nil)

	waitFor(t, func() bool { return s.State() == StateReconnecting }, "RECONNECTING after stream loss")
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED after reconnect")

	if got := streams.Load(); got < 2 {
		t.Errorf("expected a second stream connection, got %d", got)
	}
	// Initial seed + one re-sync per successful connect.
	if got := snapshots.Load(); got < 3 {
		t.Errorf("expected a fresh snapshot fetch per connect, got %d fetches", got)
	}
}

// A commit can succeed and then lose its echo to a stream drop. The
// reconnect snapshot is the confirmation in that case: the overlay must
// not keep masking whatever the snapshot carries, even a newer value
// written by someone else in the meantime.
func TestSnapshotClearsConfirmedOverlayAfterStreamLoss(t *testing.T) {
	var committed atomic.Bool
	var streams atomic.Int64
	dropFirst := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/seats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			committed.Store(true)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"success":true}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if committed.Load() {
			fmt.Fprint(w, `[{"section":"gold","row":"A","number":3,"block":"left","name":"Bob"}]`)
			return
		}
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("/v1/seats/stream", func(w http.ResponseWriter, r *http.Request) {
		n := streams.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: keepalive\n\n")
		w.(http.Flusher).Flush()
		if n == 1 {
			// Holds the first connection open past the commit, then
			// dies without ever echoing it.
			<-dropFirst
			return
		}
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Edit(seatA3, "Alice")
	waitFor(t, func() bool { return committed.Load() }, "the commit to land")
	close(dropFirst)

	waitFor(t, func() bool {
		_, ok := s.View().Pending(seatA3)
		return !ok
	}, "overlay cleanup on re-seed")
	waitFor(t, func() bool {
		name, _ := s.View().Effective(seatA3)
		return name == "Bob"
	}, "re-seeded value to show through")
}

// Terminating the session must not abort a write already on the wire;
// the call runs to completion and its result is simply discarded.
func TestTerminateLetsInFlightCommitFinish(t *testing.T) {
	var started, finished atomic.Int64
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/seats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			started.Add(1)
			<-release
			finished.Add(1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"success":true}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("/v1/seats/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: keepalive\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Edit(seatA3, "Alice")
	waitFor(t, func() bool { return started.Load() == 1 }, "the write to go on the wire")

	s.Terminate()
	if got := finished.Load(); got != 0 {
		t.Fatalf("write finished before being released, count=%d", got)
	}
	close(release)

	waitFor(t, func() bool { return finished.Load() == 1 }, "the in-flight write to complete")
}

func TestKeepaliveAndMalformedFramesIgnored(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/seats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("/v1/seats/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		fmt.Fprint(w, "data: keepalive\n\n")
		fmt.Fprint(w, "data: {malformed\n\n")
		fmt.Fprint(w, `data: {"type":"SEAT_RESERVED","seat":{"section":"gold","row":"A","number":3,"block":"left","name":"Mallory"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"SEAT_UPDATE","seat":{"section":"gold","row":"A","number":3,"block":"left","name":"Alice"}}`+"\n\n")
		f.Flush()
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := startTestSession(t, srv.URL, nil)

	waitFor(t, func() bool {
		name, ok := s.View().Authoritative(seatA3)
		return ok && name == "Alice"
	}, "the one valid frame to apply")
	if s.State() != StateSynced {
		t.Errorf("state = %s after junk frames, want SYNCED", s.State())
	}
}

func TestCommitFailureRevertsPending(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/seats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("/v1/seats/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: keepalive\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	n := &notifications{}
	s := startTestSession(t, srv.URL, n)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Edit(seatA3, "Alice")

	waitFor(t, func() bool { return n.contains("Failed to update seat A-3") }, "failure notification")
	if _, ok := s.View().Pending(seatA3); ok {
		t.Error("pending overlay survived a failed commit")
	}
	if _, ok := s.View().Authoritative(seatA3); ok {
		t.Error("failed commit leaked into authoritative state")
	}
}

func TestTerminateStopsReconnection(t *testing.T) {
	srv, _, _ := newLiveServer(t)
	s := startTestSession(t, srv.URL, nil)
	waitFor(t, func() bool { return s.State() == StateSynced }, "SYNCED state")

	s.Terminate()
	if s.State() != StateTerminated {
		t.Fatalf("state = %s after Terminate, want TERMINATED", s.State())
	}
	// Edits after termination are ignored rather than panicking.
	s.Edit(seatA3, "ghost")
}
