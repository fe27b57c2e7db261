package watcher

import (
	"context"
	"fmt"
	"strings"

	"screen-ocr-overlay/src/render"
	"screen-ocr-overlay/src/screenshot"
)

// process runs one pass: the one-shot secondary lookup if pending, then the
// full primary pass. The overlay is cleared and acknowledged before any
// capture. Errors from the primary side are fatal to the session.
func (w *Watcher) process(ctx context.Context) error {
	w.passes++
	if err := w.Renderer.Clear(true); err != nil {
		return fmt.Errorf("clear overlay before capture: %w", err)
	}

	var lookup []string
	secondary := w.secondary
	if w.hasSecondary {
		lookup = w.processSecondary(ctx)
	}

	if !w.active() {
		if len(lookup) == 0 {
			return nil
		}
		st := render.NewState(w.session.flags(), secondary, nil).WithSecondary(secondary, lookup)
		return w.draw(st)
	}

	target := w.primary
	if w.session.Fullscreen {
		box, err := w.Capture.ScreenBox()
		if err != nil {
			return fmt.Errorf("screen bounds: %w", err)
		}
		target = box
	}

	if w.Notes != nil {
		if _, err := w.Notes.CaptureScreen(screenshot.NoteName(w.now())); err != nil {
			w.Logger.Warn("failed to save notes screenshot", "error", err)
		}
	}
	shot, err := w.Capture.Capture(target, "text")
	if err != nil {
		return fmt.Errorf("capture selection: %w", err)
	}
	res, err := w.Pipeline.Run(ctx, shot.Path, target.Anchor(), w.session.options())
	if err != nil {
		return err
	}
	w.last = res
	w.rebuildWatch(target, res)

	st := render.NewState(w.session.flags(), target, res)
	if len(lookup) > 0 {
		st = st.WithSecondary(secondary, lookup)
	}
	return w.draw(st)
}

func (w *Watcher) draw(st render.State) error {
	w.state = st
	return w.Renderer.Draw(func(c render.Canvas) { render.Draw(c, st) }, false)
}

// processSecondary captures the secondary box, recognizes it and looks the
// text up. It never fails the pass and always consumes the selection.
func (w *Watcher) processSecondary(ctx context.Context) []string {
	box := w.secondary
	w.hasSecondary = false

	shot, err := w.Capture.Capture(box, "secondary")
	if err != nil {
		w.Logger.Warn("failed to capture secondary selection", "error", err)
		return nil
	}
	res, err := w.Pipeline.RunLight(ctx, shot.Path, box.Anchor())
	if err != nil {
		w.Logger.Warn("secondary recognition failed", "error", err)
		return nil
	}
	text := strings.ReplaceAll(strings.TrimSpace(res.Original), "\n", "")
	if text == "" {
		return nil
	}
	if text != w.lastSecondary {
		w.Logger.Debug("secondary word changed", "from", w.lastSecondary, "to", text)
		w.lastSecondary = text
	}

	entries, err := w.Dictionary.Lookup(ctx, text)
	if err != nil {
		w.Logger.Debug("dictionary lookup failed", "term", text, "error", err)
		entries = nil
	}
	return append([]string{text}, entries...)
}
