// Package overlay owns the render side of the overlay: the queue the worker
// submits draw commands to and the single-threaded loop that executes them.
package overlay

import (
	"errors"
	"sync"

	"screen-ocr-overlay/src/render"
)

// ErrStopped is returned by queue operations once the overlay has stopped.
var ErrStopped = errors.New("overlay stopped")

// Command draws one frame. A nil Command clears the canvas.
type Command func(c render.Canvas)

type item struct {
	cmd  Command
	done chan struct{}
}

// Queue hands draw commands from the worker to the render loop.
type Queue struct {
	mu    sync.Mutex
	items []*item

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// Draw enqueues cmd and wakes the render loop. With block set it returns
// only after the loop has executed and presented this command.
func (q *Queue) Draw(cmd Command, block bool) error {
	it := &item{cmd: cmd, done: make(chan struct{})}

	q.mu.Lock()
	select {
	case <-q.stop:
		q.mu.Unlock()
		return ErrStopped
	default:
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	if !block {
		return nil
	}
	select {
	case <-it.done:
		return nil
	case <-q.stop:
		return ErrStopped
	}
}

// Clear enqueues an empty frame.
func (q *Queue) Clear(block bool) error { return q.Draw(nil, block) }

// Stop releases blocked callers and ends the render loop. Safe to call more
// than once.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		close(q.stop)
		q.items = nil
		q.mu.Unlock()
	})
}

// Stopped is closed once Stop has been called.
func (q *Queue) Stopped() <-chan struct{} { return q.stop }

func (q *Queue) next() (*item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	it := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return it, true
}
