package watcher

import (
	"image"

	"screen-ocr-overlay/src/kana"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/screenshot"
)

// WatchMargin is trimmed from every side of a watch character's box.
const WatchMargin = 5

type watchRegion struct {
	box region.Box
	ref image.Image
}

// DeriveWatchBoxes picks the character boxes sampled for change detection:
// the middle character of the middle line of the largest block, and the
// first non-punctuation character of the first line. When neither exists
// the whole target is returned and derived is false.
func DeriveWatchBoxes(res *pipeline.Result, target region.Box) (boxes []region.Box, derived bool) {
	add := func(b region.Box) {
		shrunk, _ := b.Shrink(WatchMargin)
		for _, have := range boxes {
			if have.Equal(shrunk) {
				return
			}
		}
		boxes = append(boxes, shrunk)
	}
	if res != nil {
		if c, ok := middleOfLargestBlock(res.Blocks); ok {
			add(c.Box)
		}
		if c, ok := firstNonPunctuation(res.Lines); ok {
			add(c.Box)
		}
	}
	if len(boxes) == 0 {
		return []region.Box{target}, false
	}
	return boxes, true
}

func middleOfLargestBlock(blocks []ocr.Block) (ocr.Char, bool) {
	best := -1
	for i, b := range blocks {
		if best < 0 || b.Box.Area() > blocks[best].Box.Area() {
			best = i
		}
	}
	if best < 0 {
		return ocr.Char{}, false
	}
	var lines [][]ocr.Char
	for _, l := range blocks[best].Lines {
		if len(l) > 0 {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ocr.Char{}, false
	}
	line := lines[len(lines)/2]
	return line[len(line)/2], true
}

func firstNonPunctuation(lines [][]ocr.Char) (ocr.Char, bool) {
	if len(lines) == 0 {
		return ocr.Char{}, false
	}
	for _, c := range lines[0] {
		if !isPunctuation(c.Text) {
			return c, true
		}
	}
	return ocr.Char{}, false
}

func isPunctuation(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if !kana.IsPunctuation(r) {
			return false
		}
	}
	return true
}

// rebuildWatch replaces the watch regions with fresh references for res.
func (w *Watcher) rebuildWatch(target region.Box, res *pipeline.Result) {
	boxes, derived := DeriveWatchBoxes(res, target)
	if !derived {
		w.Logger.Warn("no watch character found, watching whole selection", "box", target.String())
	}
	w.watch = w.watch[:0]
	for _, b := range boxes {
		wr := watchRegion{box: b}
		if !w.session.NoWatch {
			w.grabReference(&wr)
		}
		w.watch = append(w.watch, wr)
	}
	w.Logger.Debug("watch regions", "count", len(w.watch))
}

// grabReference fills in the reference image of wr. On failure the region
// keeps a nil reference and is retried on the next check.
func (w *Watcher) grabReference(wr *watchRegion) {
	img, err := w.Capture.Grab(wr.box)
	if err != nil {
		w.Logger.Warn("failed to capture watch region", "box", wr.box.String(), "error", err)
		return
	}
	wr.ref = img
}

// screenChanged captures each watch region and stops at the first one that
// differs from its reference. Capture failures count as unchanged, and so
// does a region whose reference is only now being taken.
func (w *Watcher) screenChanged() bool {
	if w.session.NoWatch {
		return false
	}
	for i := range w.watch {
		wr := &w.watch[i]
		if wr.ref == nil {
			w.grabReference(wr)
			continue
		}
		img, err := w.Capture.Grab(wr.box)
		if err != nil {
			w.Logger.Warn("failed to capture watch region", "index", i, "error", err)
			return false
		}
		if !screenshot.Equal(wr.ref, img, screenshot.DefaultTolerance) {
			w.Logger.Debug("screen changed", "index", i, "box", wr.box.String())
			return true
		}
	}
	return false
}
