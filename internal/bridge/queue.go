package bridge

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of Events. Any goroutine may Put; a single
// consumer drains it. Ready is signalled after every Put so a consumer can
// sleep until there is something to do.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Put appends events in order. The events of one call are never interleaved
// with those of a concurrent call.
func (q *Queue) Put(events ...Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, events...)
	q.mu.Unlock()

	q.Wake()
}

// Wake signals Ready without adding an event. Producers use it when
// something outside the queue changed, such as a connect attempt ending.
func (q *Queue) Wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryGet removes and returns the oldest event, if any.
func (q *Queue) TryGet() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Event{}, false
	}
	ev := q.items[0]
	q.items[0] = Event{}
	q.items = q.items[1:]
	return ev, true
}

// Drain removes and returns all pending events. It never blocks.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether no events are pending.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Ready returns a channel that receives a value after events are Put.
// A receive does not guarantee the queue is still non-empty.
func (q *Queue) Ready() <-chan struct{} {
	return q.notify
}

// Wait blocks until the queue is non-empty or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		if !q.Empty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		}
	}
}
