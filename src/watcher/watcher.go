// Package watcher implements the worker: it owns the current selections,
// decides when to re-run the pipeline and hands render snapshots to the
// overlay.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/dictionary"
	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/render"
	"screen-ocr-overlay/src/screenshot"
	"screen-ocr-overlay/src/tokenizer"
)

// Capturer grabs screen regions.
type Capturer interface {
	Capture(box region.Box, name string) (screenshot.Shot, error)
	Grab(box region.Box) (*image.RGBA, error)
	ScreenBox() (region.Box, error)
}

// NotesCapturer keeps a full-screen copy of each pass.
type NotesCapturer interface {
	CaptureScreen(name string) (screenshot.Shot, error)
}

// Analyzer is the recognition pipeline.
type Analyzer interface {
	Run(ctx context.Context, imagePath string, rc region.Context, opts pipeline.Options) (*pipeline.Result, error)
	RunLight(ctx context.Context, imagePath string, rc region.Context) (*pipeline.Result, error)
}

// Renderer is the worker's side of the render queue.
type Renderer interface {
	Draw(cmd overlay.Command, block bool) error
	Clear(block bool) error
	Stop()
}

// Pointer reports the mouse position in screen coordinates.
type Pointer interface {
	Position() (image.Point, bool)
}

// SelectionStore persists the primary selection across runs.
type SelectionStore interface {
	Load() (region.Box, bool)
	Save(box region.Box) error
}

// Deps are the collaborators of a Watcher. Notes, Dictionary, Store,
// OpenURL and Copy are optional.
type Deps struct {
	Events     *events.Queue
	Capture    Capturer
	Notes      NotesCapturer
	Pipeline   Analyzer
	Renderer   Renderer
	Pointer    Pointer
	Dictionary dictionary.Lookup
	Store      SelectionStore
	OpenURL    func(url string) error
	Copy       func(text string) error
	Logger     *slog.Logger
}

type Watcher struct {
	Deps
	session     Session
	pollTimeout time.Duration
	now         func() time.Time
	stop        atomic.Bool

	primary      region.Box
	hasPrimary   bool
	secondary    region.Box
	hasSecondary bool

	last          *pipeline.Result
	watch         []watchRegion
	hover         *tokenizer.Token
	lastSecondary string
	state         render.State
	passes        int
}

func New(deps Deps, session Session) *Watcher {
	if deps.Dictionary == nil {
		deps.Dictionary = dictionary.Nop{}
	}
	return &Watcher{
		Deps:        deps,
		session:     session,
		pollTimeout: events.DefaultPollTimeout,
		now:         time.Now,
	}
}

// Stop asks the loop to exit after the current iteration.
func (w *Watcher) Stop() { w.stop.Store(true) }

// Stopped reports whether the stop flag is set.
func (w *Watcher) Stopped() bool { return w.stop.Load() }

// Run restores the saved selection, loops until stopped or ctx is done and
// saves the selection on the way out. A non-nil error means a pass failed
// and the session is over.
func (w *Watcher) Run(ctx context.Context) error {
	w.restore()
	defer w.persist()

	w.Logger.Info("watcher started", "armed", w.hasPrimary)
	for !w.stop.Load() && ctx.Err() == nil {
		if err := w.tick(ctx); err != nil {
			w.stop.Store(true)
			w.Renderer.Stop()
			if errors.Is(err, overlay.ErrStopped) || ctx.Err() != nil {
				w.Logger.Info("watcher stopping", "reason", err)
				return nil
			}
			w.Logger.Error("processing pass failed, stopping session", "error", err)
			return err
		}
	}
	w.Logger.Info("watcher stopped", "passes", w.passes)
	return nil
}

// tick is one loop iteration: take at most one event, run a pass if one is
// due, then track the hover token.
func (w *Watcher) tick(ctx context.Context) error {
	reprocess := false
	if ev, ok := w.Events.Pop(ctx, w.pollTimeout); ok {
		reprocess = w.handle(ev)
	}
	if w.due(reprocess) {
		if err := w.process(ctx); err != nil {
			return err
		}
	}
	w.updateHover(ctx)
	return nil
}

func (w *Watcher) active() bool { return w.hasPrimary || w.session.Fullscreen }

func (w *Watcher) due(reprocess bool) bool {
	switch {
	case w.hasSecondary:
		return true
	case !w.active():
		return false
	case w.last == nil, reprocess, len(w.watch) == 0:
		return true
	}
	return w.screenChanged()
}

// handle applies one event and reports whether it invalidates the current
// overlay.
func (w *Watcher) handle(ev events.Event) bool {
	switch e := ev.(type) {
	case events.KeyEvent:
		w.Logger.Info("watcher got key event", "key", string(e.Key))
		return w.handleKey(e.Key)
	case events.RegionEvent:
		w.Logger.Info("watcher got region event", "role", e.Role.String(), "box", e.Box.String())
		if e.Role == events.Secondary {
			w.secondary, w.hasSecondary = e.Box, true
			return true
		}
		w.primary, w.hasPrimary = e.Box, true
		w.last = nil
		w.watch = nil
		w.hover = nil
		return true
	case events.SettingsEvent:
		w.Logger.Info("watcher got new settings")
		w.session.Settings = e.Settings
		return true
	}
	w.Logger.Debug("ignoring event", "type", ev.Type())
	return false
}

func (w *Watcher) handleKey(k events.Key) bool {
	s := &w.session
	switch k {
	case events.KeyClear:
		if err := w.Renderer.Clear(false); err != nil {
			w.Logger.Warn("failed to clear overlay", "error", err)
		}
	case events.KeyDebug:
		s.Debug = !s.Debug
		return true
	case events.KeyTranslate:
		if !s.Translate && !s.CanTranslate {
			w.Logger.Warn("ignoring translate toggle, no translator configured")
			return false
		}
		s.Translate = !s.Translate
		return true
	case events.KeyPartsOfSpeech:
		s.PartsOfSpeech = !s.PartsOfSpeech
		return true
	case events.KeyFuriganaUp, events.KeyFuriganaDown:
		step := 2
		if k == events.KeyFuriganaDown {
			step = -2
		}
		s.Settings.FuriganaSize = config.ClampFontSize(s.Settings.FuriganaSize+step, config.DefaultSettings().FuriganaSize)
		return true
	case events.KeyJisho:
		w.openLookup(s.Settings.Lookup.Jisho)
	case events.KeyWikipediaJA:
		w.openLookup(s.Settings.Lookup.WikipediaJA)
	case events.KeyWikipediaEN:
		w.openLookup(s.Settings.Lookup.WikipediaEN)
	case events.KeyCopy:
		w.copyText()
	}
	return false
}

// lookupTerm is the hover token's surface, else the last full text.
func (w *Watcher) lookupTerm() string {
	if w.hover != nil {
		return w.hover.Surface
	}
	if w.last != nil {
		return w.last.Original
	}
	return ""
}

func (w *Watcher) openLookup(prefix string) {
	term := w.lookupTerm()
	if term == "" || w.OpenURL == nil {
		return
	}
	u := prefix + url.QueryEscape(term)
	if err := w.OpenURL(u); err != nil {
		w.Logger.Warn("failed to open lookup", "url", u, "error", err)
	}
}

func (w *Watcher) copyText() {
	text := w.lookupTerm()
	if text == "" || w.Copy == nil {
		return
	}
	if err := w.Copy(text); err != nil {
		w.Logger.Warn("failed to copy text", "error", err)
	}
}

func (w *Watcher) restore() {
	if w.Store == nil {
		return
	}
	if box, ok := w.Store.Load(); ok {
		w.primary, w.hasPrimary = box, true
		w.Logger.Info("restored selection", "box", box.String())
	}
}

func (w *Watcher) persist() {
	if w.Store == nil || !w.hasPrimary {
		return
	}
	if err := w.Store.Save(w.primary); err != nil {
		w.Logger.Warn("failed to save selection", "error", err)
		return
	}
	w.Logger.Debug("saved selection", "box", w.primary.String())
}

func (w *Watcher) String() string {
	return fmt.Sprintf("Watcher(primary=%t secondary=%t armed=%t watch=%d)",
		w.hasPrimary, w.hasSecondary, w.hasPrimary && w.last == nil, len(w.watch))
}
