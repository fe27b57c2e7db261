// Package worker runs recognition jobs on a fixed set of goroutines.
package worker

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// Job is one unit of work. It should honor ctx.
type Job func(ctx context.Context)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	logger *slog.Logger
}

type job struct {
	ctx context.Context
	run Job
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1), logger: logger}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				if j.ctx.Err() != nil {
					p.logger.Debug("skipping cancelled job", "worker", id)
					continue
				}
				j.run(j.ctx)
			}
		}(i)
	}
}

// TrySubmit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) TrySubmit(ctx context.Context, fn Job) bool {
	select {
	case p.jobs <- job{ctx: ctx, run: fn}:
		return true
	default:
		return false
	}
}

// Submit waits for the queue slot. It returns ctx.Err() if ctx ends first.
func (p *Pool) Submit(ctx context.Context, fn Job) error {
	select {
	case p.jobs <- job{ctx: ctx, run: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
