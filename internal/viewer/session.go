package viewer

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"seatmap/internal/model"
)

// State is the lifecycle phase of a Session.
type State int32

const (
	// StateInitializing covers the first snapshot fetch and the first
	// attempt to open the event stream.
	StateInitializing State = iota
	// StateSynced is normal operation: edits debounce into commits,
	// incoming events reconcile immediately.
	StateSynced
	// StateReconnecting means the event stream is down and a retry is
	// scheduled. Retries continue indefinitely on a fixed delay.
	StateReconnecting
	// StateTerminated is terminal; the session was explicitly ended.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateSynced:
		return "SYNCED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateTerminated:
		return "TERMINATED"
	}
	return "UNKNOWN"
}

// Notifier receives the user-visible, non-blocking notifications a
// session emits: seat change descriptions, failed commits, connection
// loss. Severity is one of "info", "warning", "error". Notifications
// are observational; dropping them changes nothing about convergence.
type Notifier func(severity, message string)

// Options tune a Session. The zero value gets the production defaults;
// tests shrink the delays.
type Options struct {
	// DebounceDelay is the quiet interval after the last edit to a key
	// before its value is committed. Default 1s.
	DebounceDelay time.Duration
	// ReconnectDelay is the fixed wait between reconnect attempts.
	// No backoff, no jitter, no retry cap. Default 5s.
	ReconnectDelay time.Duration
	// Notify receives user-visible notifications. Nil discards them.
	Notify Notifier
}

const (
	defaultDebounceDelay  = time.Second
	defaultReconnectDelay = 5 * time.Second
)

type streamMsgKind int

const (
	msgSnapshot streamMsgKind = iota
	msgConnected
	msgEvent
	msgDisconnected
)

// streamMsg is what the connection goroutine posts into the session
// loop. Messages arrive in connection order, so a reconciliation can
// never overtake an earlier event from the same connection.
type streamMsg struct {
	kind    streamMsgKind
	records []model.SeatRecord
	event   model.ChangeEvent
}

type editReq struct {
	key  model.SeatKey
	name string
}

type commitResult struct {
	key model.SeatKey
	// noEcho marks a commit whose outcome will produce no broadcast
	// (clearing a seat that was already free), so the pending entry
	// must be dropped here instead of waiting for an echo.
	noEcho bool
	err    error
}

// Session is one viewer's synchronization state machine. All view
// state is owned by a single event-loop goroutine; Edit and Terminate
// are safe to call from any goroutine.
type Session struct {
	client *Client
	opts   Options
	view   *ViewState

	state atomic.Int32

	edits   chan editReq
	flush   chan model.SeatKey
	commits chan commitResult
	inbox   chan streamMsg

	timers map[model.SeatKey]*time.Timer
	// awaitingEcho holds keys whose commit succeeded but whose broadcast
	// echo has not arrived yet. If the stream drops in that window the
	// echo is lost for good; a fresh snapshot carries the committed value
	// (or a newer one), so seeding drops these overlays instead of
	// letting them mask the re-seeded state forever.
	awaitingEcho map[model.SeatKey]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	terminateOnce sync.Once
}

// Start creates a session and begins synchronizing: seed snapshot,
// stream subscription, then SYNCED. The session runs until Terminate.
func Start(client *Client, opts Options) *Session {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = defaultDebounceDelay
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:       client,
		opts:         opts,
		view:         NewViewState(),
		edits:        make(chan editReq, 64),
		flush:        make(chan model.SeatKey, 64),
		commits:      make(chan commitResult, 64),
		inbox:        make(chan streamMsg, 64),
		timers:       make(map[model.SeatKey]*time.Timer),
		awaitingEcho: make(map[model.SeatKey]struct{}),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	s.state.Store(int32(StateInitializing))
	go s.connLoop()
	go s.run()
	return s
}

// State reports the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// View exposes the session's view state for display.
func (s *Session) View() *ViewState {
	return s.view
}

// Edit records a local edit to a seat. The pending overlay updates
// immediately and the commit is debounced; rapid edits to the same key
// coalesce into one write carrying the latest value. An empty name
// clears the seat.
func (s *Session) Edit(key model.SeatKey, name string) {
	if s.State() == StateTerminated {
		return
	}
	select {
	case s.edits <- editReq{key: key, name: name}:
	case <-s.ctx.Done():
	}
}

// Terminate ends the session: pending debounce timers are cancelled,
// the stream is closed and no further transitions occur. An in-flight
// commit is left to finish; its echo simply has nobody to reconcile.
func (s *Session) Terminate() {
	s.terminateOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Session) notify(severity, message string) {
	if s.opts.Notify != nil {
		s.opts.Notify(severity, message)
	}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// run is the single-threaded event loop that owns all session state.
// Commits and the stream run on other goroutines but report back here,
// so the maps and timers never see concurrent mutation.
func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case e := <-s.edits:
			s.handleEdit(e)
		case key := <-s.flush:
			s.handleFlush(key)
		case r := <-s.commits:
			s.handleCommit(r)
		case m := <-s.inbox:
			s.handleStream(m)
		}
	}
}

func (s *Session) shutdown() {
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.setState(StateTerminated)
}

// handleEdit applies the optimistic overlay and re-arms the key's
// debounce timer. The timer only posts the key back into the loop; the
// value sent is whatever pending holds at fire time, not a snapshot
// taken here.
func (s *Session) handleEdit(e editReq) {
	s.view.SetPending(e.key, e.name)
	// A new edit starts a new commit cycle; the overlay now holds text
	// the user is typing and must survive a re-seed.
	delete(s.awaitingEcho, e.key)
	if t, ok := s.timers[e.key]; ok {
		t.Stop()
	}
	key := e.key
	s.timers[key] = time.AfterFunc(s.opts.DebounceDelay, func() {
		select {
		case s.flush <- key:
		case <-s.ctx.Done():
		}
	})
}

// handleFlush commits the current pending value for a key. If a
// reconciliation removed the pending entry inside the debounce window,
// there is nothing left to say: the authoritative update won.
func (s *Session) handleFlush(key model.SeatKey) {
	delete(s.timers, key)
	name, ok := s.view.Pending(key)
	if !ok {
		return
	}
	go s.commit(key, name)
}

// commit performs the mutating call off the event loop. An empty value
// is a clear and goes through the delete endpoint; everything else is
// an upsert. The outcome is reported back into the loop.
//
// The HTTP call deliberately does not run under the session context:
// terminating the session leaves an in-flight write free to complete,
// and its result is simply discarded if nobody is left to receive it.
func (s *Session) commit(key model.SeatKey, name string) {
	var res commitResult
	res.key = key
	if name == "" {
		alreadyFree, err := s.client.ClearSeat(context.Background(), key)
		res.err = err
		res.noEcho = err == nil && alreadyFree
	} else {
		res.err = s.client.UpsertSeat(context.Background(), key, name)
	}
	select {
	case s.commits <- res:
	case <-s.ctx.Done():
	}
}

// handleCommit finishes a write. Success leaves the pending entry in
// place: the broadcast echo is the one place it gets cleared, which
// also covers updates originated by other viewers. The exceptions are
// failure (revert and tell the user) and a clear that matched no
// record, which produces no echo to wait for.
func (s *Session) handleCommit(r commitResult) {
	if r.err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.view.ClearPending(r.key)
		delete(s.awaitingEcho, r.key)
		log.Printf("viewer: commit for seat %s failed: %v", r.key, r.err)
		s.notify("error", "Failed to update seat "+r.key.Label())
		return
	}
	if r.noEcho {
		s.view.ClearPending(r.key)
		delete(s.awaitingEcho, r.key)
		return
	}
	s.awaitingEcho[r.key] = struct{}{}
}

func (s *Session) handleStream(m streamMsg) {
	switch m.kind {
	case msgSnapshot:
		// Overlays whose commit already confirmed get no echo after a
		// stream drop; the snapshot is their confirmation now.
		for key := range s.awaitingEcho {
			s.view.ClearPending(key)
			delete(s.awaitingEcho, key)
		}
		s.view.Seed(m.records)
	case msgConnected:
		s.setState(StateSynced)
	case msgEvent:
		delete(s.awaitingEcho, m.event.Seat.SeatKey)
		occupied := s.view.Apply(m.event)
		label := m.event.Seat.Label()
		if occupied {
			s.notify("info", "Seat "+label+" was updated")
		} else {
			s.notify("info", "Seat "+label+" was cleared")
		}
	case msgDisconnected:
		if s.State() == StateSynced {
			s.notify("warning", "Connection lost; reconnecting")
		}
		s.setState(StateReconnecting)
	}
}

func (s *Session) post(m streamMsg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

// connLoop owns the event-stream connection: open, re-sync, read until
// failure, wait the fixed delay, try again. It never gives up; only
// session termination stops it.
func (s *Session) connLoop() {
	// Initial seed so the viewer has data even before the stream is
	// confirmed open.
	if records, err := s.client.FetchSeats(s.ctx); err == nil {
		s.post(streamMsg{kind: msgSnapshot, records: records})
	} else if s.ctx.Err() == nil {
		log.Printf("viewer: initial snapshot fetch failed: %v", err)
	}

	for {
		if s.ctx.Err() != nil {
			return
		}
		body, err := s.client.OpenStream(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("viewer: event stream connect failed: %v", err)
			s.post(streamMsg{kind: msgDisconnected})
			if !s.waitReconnect() {
				return
			}
			continue
		}

		// Connection confirmed open: re-fetch the snapshot to close
		// the gap between the previous state and subscription start,
		// then enter SYNCED.
		records, err := s.client.FetchSeats(s.ctx)
		if err != nil {
			body.Close()
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("viewer: re-sync snapshot fetch failed: %v", err)
			s.post(streamMsg{kind: msgDisconnected})
			if !s.waitReconnect() {
				return
			}
			continue
		}
		s.post(streamMsg{kind: msgSnapshot, records: records})
		s.post(streamMsg{kind: msgConnected})

		err = s.readStream(body)
		body.Close()
		if s.ctx.Err() != nil {
			return
		}
		log.Printf("viewer: event stream closed: %v", err)
		s.post(streamMsg{kind: msgDisconnected})
		if !s.waitReconnect() {
			return
		}
	}
}

// waitReconnect sleeps the fixed reconnect delay. Returns false when
// the session terminated while waiting.
func (s *Session) waitReconnect() bool {
	t := time.NewTimer(s.opts.ReconnectDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// readStream consumes SSE frames until the connection breaks. Frames
// are newline-terminated "data: ..." lines; the keepalive marker is
// recognized and skipped before any JSON parsing. Undecodable payloads
// and unknown event types are dropped and logged, never fatal.
func (s *Session) readStream(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "keepalive" {
			continue
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Printf("viewer: dropping malformed event frame: %v", err)
			continue
		}
		if ev.Type != model.EventSeatUpdate {
			log.Printf("viewer: dropping event with unknown type %q", ev.Type)
			continue
		}
		s.post(streamMsg{kind: msgEvent, event: ev})
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
