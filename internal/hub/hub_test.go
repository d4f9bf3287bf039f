package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"seatmap/internal/model"
)

func testEvent(name string) model.ChangeEvent {
	return model.NewSeatUpdate(model.SeatRecord{
		SeatKey: model.SeatKey{Section: "gold", Row: "A", Number: 3, Block: "left"},
		Name:    &name,
	})
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := New()
	subs := make([]*Subscriber, 5)
	for i := range subs {
		subs[i] = h.Subscribe()
	}

	h.Publish(testEvent("Alice"))

	for i, sub := range subs {
		select {
		case ev := <-sub.C():
			if ev.Seat.Name == nil || *ev.Seat.Name != "Alice" {
				t.Errorf("subscriber %d: got wrong event %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
		// Exactly once: nothing else buffered.
		select {
		case ev := <-sub.C():
			t.Errorf("subscriber %d received a second event %+v", i, ev)
		default:
		}
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := New()

	fast := h.Subscribe()
	var received []model.ChangeEvent
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range fast.C() {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
		}
	}()

	slow := h.Subscribe() // never drained

	total := subscriberBuffer + 4
	for i := 0; i < total; i++ {
		h.Publish(testEvent(fmt.Sprintf("guest-%d", i)))
	}

	if n := h.Len(); n != 1 {
		t.Fatalf("expected only the fast subscriber to remain, got %d", n)
	}

	// The slow subscriber's channel must be closed by the removal.
	deadline := time.After(time.Second)
	drained := 0
drain:
	for {
		select {
		case _, ok := <-slow.C():
			if !ok {
				break drain
			}
			drained++
		case <-deadline:
			t.Fatal("slow subscriber channel never closed")
		}
	}
	if drained != subscriberBuffer {
		t.Errorf("slow subscriber buffered %d events, expected %d", drained, subscriberBuffer)
	}

	// A publish after the drop still reaches the survivor and nobody else.
	h.Publish(testEvent("after-drop"))
	h.Unsubscribe(fast)
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(received) != total+1 {
		t.Fatalf("fast subscriber received %d events, expected %d", len(received), total+1)
	}
	last := received[len(received)-1]
	if last.Seat.Name == nil || *last.Seat.Name != "after-drop" {
		t.Errorf("fast subscriber's last event was %+v", last)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New()
	s := h.Subscribe()
	h.Unsubscribe(s)
	h.Unsubscribe(s) // second removal is a no-op
	h.Unsubscribe(&Subscriber{ch: make(chan model.ChangeEvent)}) // never subscribed
	h.Unsubscribe(nil)
	if n := h.Len(); n != 0 {
		t.Fatalf("expected empty hub, got %d subscribers", n)
	}
}

// A subscriber disconnecting mid-publish must never crash the hub: the
// publisher runs flat out on its own goroutine while other goroutines
// register and deregister subscribers, so closes and sends to the same
// channel race constantly.
func TestPublishRacesUnsubscribe(t *testing.T) {
	h := New()
	stop := make(chan struct{})
	var pubs sync.WaitGroup
	pubs.Add(1)
	go func() {
		defer pubs.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.Publish(testEvent("x"))
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := h.Subscribe()
				h.Unsubscribe(s)
			}
		}()
	}
	wg.Wait()
	close(stop)
	pubs.Wait()

	if n := h.Len(); n != 0 {
		t.Fatalf("expected empty hub after churn, got %d", n)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := h.Subscribe()
				h.Publish(testEvent("x"))
				h.Unsubscribe(s)
			}
		}()
	}
	wg.Wait()
	if n := h.Len(); n != 0 {
		t.Fatalf("expected empty hub after churn, got %d", n)
	}
}
