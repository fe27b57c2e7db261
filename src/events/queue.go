package events

import (
	"context"
	"sync"
	"time"
)

// DefaultPollTimeout bounds how long the worker waits for input before it
// runs its change-detection poll anyway.
const DefaultPollTimeout = 500 * time.Millisecond

// Queue is an unbounded FIFO of events. Push never blocks and never drops;
// Pop waits at most the given timeout.
type Queue struct {
	mu    sync.Mutex
	items []Event
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends e. Safe to call from input callbacks.
func (q *Queue) Push(e Event) {
	if e == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop returns the oldest event, waiting up to timeout for one to arrive.
// The second result is false on timeout or when ctx is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if e, ok := q.take(); ok {
			return e, true
		}
		select {
		case <-q.ready:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) take() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return e, true
}
