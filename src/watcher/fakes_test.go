package watcher

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/screenshot"
)

// callLog records calls across fakes so tests can check ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeCapture serves solid images whose colour is the current frame number,
// so bumping the frame changes every region.
type fakeCapture struct {
	log      *callLog
	mu       sync.Mutex
	frame    uint8
	captured []region.Box
	grabs    int
	grabErr  error
	screen   region.Box
}

func (f *fakeCapture) Capture(box region.Box, name string) (screenshot.Shot, error) {
	f.log.add("capture:" + name)
	f.mu.Lock()
	f.captured = append(f.captured, box)
	f.mu.Unlock()
	return screenshot.Shot{Path: name + ".png", Box: box}, nil
}

func (f *fakeCapture) Grab(box region.Box) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grabs++
	if f.grabErr != nil {
		return nil, f.grabErr
	}
	r := box.Rect(region.Screen)
	img := image.NewRGBA(image.Rect(0, 0, max(r.Dx(), 1), max(r.Dy(), 1)))
	c := color.RGBA{f.frame, f.frame, f.frame, 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

func (f *fakeCapture) ScreenBox() (region.Box, error) { return f.screen, nil }

func (f *fakeCapture) changeScreen() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame += 100
}

type fakeAnalyzer struct {
	log          *callLog
	result       *pipeline.Result
	light        *pipeline.Result
	err          error
	translateErr error // returned when opts.Translate is set
	runs         int
	lightRuns    int
	rc           region.Context
	opts         pipeline.Options
}

func (f *fakeAnalyzer) Run(_ context.Context, path string, rc region.Context, opts pipeline.Options) (*pipeline.Result, error) {
	f.log.add("run:" + path)
	f.runs++
	f.rc, f.opts = rc, opts
	if f.err != nil {
		return nil, f.err
	}
	if opts.Translate && f.translateErr != nil {
		return nil, f.translateErr
	}
	return f.result, nil
}

func (f *fakeAnalyzer) RunLight(_ context.Context, path string, rc region.Context) (*pipeline.Result, error) {
	f.log.add("light:" + path)
	f.lightRuns++
	if f.light == nil {
		return nil, errors.New("no light result")
	}
	return f.light, nil
}

type fakeRenderer struct {
	log     *callLog
	draws   int
	stopped bool
	onDraw  func()
}

func (f *fakeRenderer) Draw(cmd overlay.Command, block bool) error {
	if cmd == nil {
		if block {
			f.log.add("clear:block")
		} else {
			f.log.add("clear:async")
		}
		return nil
	}
	f.log.add("draw")
	f.draws++
	if f.onDraw != nil {
		f.onDraw()
	}
	return nil
}

func (f *fakeRenderer) Clear(block bool) error { return f.Draw(nil, block) }
func (f *fakeRenderer) Stop()                  { f.stopped = true }

type fakePointer struct {
	p  image.Point
	ok bool
}

func (f *fakePointer) Position() (image.Point, bool) { return f.p, f.ok }

type fakeStore struct {
	box   region.Box
	has   bool
	saved []region.Box
}

func (f *fakeStore) Load() (region.Box, bool) { return f.box, f.has }

func (f *fakeStore) Save(b region.Box) error {
	f.saved = append(f.saved, b)
	return nil
}

type fakeDictionary struct {
	terms   []string
	entries []string
	err     error
}

func (f *fakeDictionary) Lookup(_ context.Context, term string) ([]string, error) {
	f.terms = append(f.terms, term)
	return f.entries, f.err
}

type harness struct {
	w        *Watcher
	log      *callLog
	queue    *events.Queue
	capture  *fakeCapture
	analyzer *fakeAnalyzer
	renderer *fakeRenderer
	pointer  *fakePointer
	store    *fakeStore
	dict     *fakeDictionary
	opened   []string
	copied   []string
}

func newHarness(result *pipeline.Result, session Session) *harness {
	log := &callLog{}
	h := &harness{
		log:      log,
		queue:    events.NewQueue(),
		capture:  &fakeCapture{log: log, screen: region.New(0, 0, 1920, 1080, region.Context{})},
		analyzer: &fakeAnalyzer{log: log, result: result},
		renderer: &fakeRenderer{log: log},
		pointer:  &fakePointer{},
		store:    &fakeStore{},
		dict:     &fakeDictionary{},
	}
	h.w = New(Deps{
		Events:     h.queue,
		Capture:    h.capture,
		Pipeline:   h.analyzer,
		Renderer:   h.renderer,
		Pointer:    h.pointer,
		Dictionary: h.dict,
		Store:      h.store,
		OpenURL:    func(u string) error { h.opened = append(h.opened, u); return nil },
		Copy:       func(s string) error { h.copied = append(h.copied, s); return nil },
		Logger:     logutil.Discard(),
	}, session)
	h.w.pollTimeout = 5 * time.Millisecond
	return h
}
