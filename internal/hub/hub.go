// Package hub implements the process-wide broadcast hub that fans seat
// change events out to every connected viewer. One Hub is created at
// startup and injected into the SSE handler (which subscribes) and the
// mutating handlers (which publish); nothing reaches it through package
// globals, so it can be exercised in isolation.
package hub

import (
	"log"
	"sync"

	"seatmap/internal/model"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind is treated as dead and deregistered; a
// blocked transport must never stall delivery to the others.
const subscriberBuffer = 16

// Subscriber is one registered output channel. Events are received on
// C(); the channel is closed when the subscriber is removed from the
// hub, whether by Unsubscribe or by a failed delivery.
type Subscriber struct {
	ch     chan model.ChangeEvent
	closed sync.Once
}

// C returns the receive side of the subscriber's event channel.
func (s *Subscriber) C() <-chan model.ChangeEvent {
	return s.ch
}

func (s *Subscriber) close() {
	s.closed.Do(func() { close(s.ch) })
}

// Hub is the registry of live subscribers. Publish may run concurrently
// with Subscribe and Unsubscribe from independent connection handlers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber and returns its handle. There is
// no cap on the subscriber count.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan model.ChangeEvent, subscriberBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	log.Printf("hub: subscriber connected, total=%d", n)
	return s
}

// Unsubscribe removes a subscriber and closes its channel. Removing a
// handle that is not registered is a no-op, so callers may unsubscribe
// unconditionally on teardown. The close happens under the write lock:
// Publish sends while holding the read lock, so a channel can never be
// closed with a send in flight.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[s]
	if ok {
		delete(h.subs, s)
		s.close()
	}
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		log.Printf("hub: subscriber disconnected, total=%d", n)
	}
}

// Publish delivers the event to every subscriber registered at call
// time. Delivery is non-blocking: a subscriber whose buffer is full is
// deregistered and skipped, and the remaining subscribers still receive
// the event. A publish never fails as a whole.
//
// The sends run under the read lock. They cannot block (buffered
// channel, default case), so no subscriber can stall another, and
// holding the lock excludes Unsubscribe's channel close for the
// duration of the sends. Full-buffer subscribers are collected and
// deregistered after the lock is released.
func (h *Hub) Publish(ev model.ChangeEvent) {
	var dropped []*Subscriber
	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			dropped = append(dropped, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range dropped {
		log.Printf("hub: subscriber not keeping up, dropping it (seat %s)", ev.Seat.SeatKey)
		h.Unsubscribe(s)
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
