package store

import (
	"sync"
)

// EventQueue delivers change events to Watchers on a goroutine of its own.
// Events are delivered in the order they were pushed; Push never waits for a handler.
// Backends whose change detection runs on a path that handlers may need
// (for example the apply loop of a replicated log) report through a queue.
//
// Thread-safety: Push and Close may be called from any goroutine.
type EventQueue struct {
	watchers *Watchers

	mu      sync.Mutex
	cond    *sync.Cond
	pending []ChangeEvent
	closed  bool

	consumer sync.WaitGroup
}

// NewEventQueue starts the consumer goroutine delivering to w.
func NewEventQueue(w *Watchers) *EventQueue {
	q := &EventQueue{watchers: w}
	q.cond = sync.NewCond(&q.mu)

	q.consumer.Add(1)
	go q.consume()
	return q
}

// Push appends an event to the queue.
// Returns false if the event was dropped because it has no keys or the queue is closed.
func (q *EventQueue) Push(event ChangeEvent) bool {
	if len(event.Keys) == 0 {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, event)
	q.cond.Signal()
	return true
}

func (q *EventQueue) consume() {
	defer q.consumer.Done()

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, event := range batch {
			q.watchers.Notify(event)
		}
	}
}

// Close stops the consumer and waits for the handler currently running.
// Events that were not delivered yet are dropped. Close is idempotent.
func (q *EventQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.pending = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	q.consumer.Wait()
}
