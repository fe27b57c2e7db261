package overlay

import (
	"context"
	"log/slog"

	"screen-ocr-overlay/src/render"
)

// Surface is the frame the loop draws into.
type Surface interface {
	render.Canvas
	Clear()
	Present() error
}

// Loop executes queued commands one at a time on the calling goroutine.
type Loop struct {
	queue   *Queue
	surface Surface
	logger  *slog.Logger
}

func NewLoop(q *Queue, s Surface, logger *slog.Logger) *Loop {
	return &Loop{queue: q, surface: s, logger: logger}
}

// Run blocks until ctx is done or the queue is stopped. The surface is
// cleared and presented on the way out so nothing stale stays on screen.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("overlay loop started")
	defer func() {
		l.surface.Clear()
		if err := l.surface.Present(); err != nil {
			l.logger.Warn("failed to present final frame", "error", err)
		}
		l.logger.Info("overlay loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			l.queue.Stop()
			return ctx.Err()
		case <-l.queue.Stopped():
			return nil
		case <-l.queue.wake:
		}

		for {
			it, ok := l.queue.next()
			if !ok {
				break
			}
			l.execute(it)
			close(it.done)
		}
	}
}

func (l *Loop) execute(it *item) {
	l.surface.Clear()
	if it.cmd != nil {
		it.cmd(l.surface)
	}
	if err := l.surface.Present(); err != nil {
		l.logger.Warn("failed to present frame", "error", err)
	}
}
