package engine

import (
	"sync"

	"github.com/drumsync/drumsync/internal/score"
)

// Event is one performer strike: when it happened (seconds since session
// start) and which instrument produced it. Events are immutable and are
// consumed exactly once by the Run loop.
type Event struct {
	Time       float64
	Instrument score.Instrument
}

// eventQueue is the single-producer/single-consumer FIFO between the
// event source and the Run loop.
//
// The queue is unbounded: the source never blocks on a slow consumer and
// the queue itself never drops an event. Collision handling, debouncing
// and similar policies belong to the Source producing the events.
//
// Blocking waits go through the signal channel so the consumer can select
// on it together with a context - there is no fixed-interval polling on
// the consumer side. The channel is buffered with size 1; multiple
// enqueues coalesce into one wakeup and the consumer drains until empty.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an event. Safe to call from the source goroutine while
// the Run loop dequeues. Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	if len(q.events) == 1 {
		// Keep the allocated backing array for the next burst.
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns the wakeup channel. Use with select:
//
//	select {
//	case <-ctx.Done():
//	case <-q.Wait():
//	    // retry TryDequeue
//	}
//
// The channel is closed when the queue closes, so waiters wake promptly
// on shutdown.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of buffered events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close marks the queue closed and wakes all waiters. Idempotent.
// Buffered events remain dequeueable after Close.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
