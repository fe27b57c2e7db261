package watcher

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/tokenizer"
)

func defaultSession() Session {
	return Session{Translate: true, CanTranslate: true, Furigana: config.FuriganaNone, Settings: config.DefaultSettings()}
}

// helloResult lays "こんにちは" out in 20x20 cells inside target.
func helloResult(target region.Box, translation string) *pipeline.Result {
	ctx := target.Anchor()
	var line []ocr.Char
	for i, r := range "こんにちは" {
		line = append(line, ocr.Char{Text: string(r), Conf: 100, Box: region.New(i*20, 0, 20, 20, ctx)})
	}
	tok := tokenizer.WithBox(tokenizer.Token{Surface: "こんにちは", POS: []string{"感動詞"}}, region.New(0, 0, 100, 20, ctx))
	return &pipeline.Result{
		Original:    "こんにちは",
		Translation: translation,
		Lines:       [][]ocr.Char{line},
		Tokens:      []tokenizer.Token{tok},
		Blocks:      []ocr.Block{{Lines: [][]ocr.Char{line}, Box: region.New(0, 0, 100, 20, ctx)}},
	}
}

func selection() region.Box { return region.New(10, 10, 100, 50, region.Context{}) }

func tick(t *testing.T, h *harness) {
	t.Helper()
	require.NoError(t, h.w.tick(context.Background()))
}

func TestIdleRunsNoPasses(t *testing.T) {
	h := newHarness(helloResult(selection(), "Hello"), defaultSession())
	h.queue.Push(events.KeyEvent{Key: events.KeyDebug})
	tick(t, h)
	tick(t, h)

	assert.Zero(t, h.analyzer.runs)
	assert.Empty(t, h.capture.captured)
	assert.True(t, h.w.session.Debug)
}

func TestSelectionScenarioProducesTranslatedState(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)

	require.Equal(t, 1, h.analyzer.runs)
	assert.Equal(t, []region.Box{sel}, h.capture.captured)
	assert.Equal(t, region.Context{ScreenX: 10, ScreenY: 10, ClientX: 10, ClientY: 10}, h.analyzer.rc)
	assert.True(t, h.analyzer.opts.Translate)

	st := h.w.state
	require.NotNil(t, st.Result())
	assert.Equal(t, "こんにちは", st.Result().Original)
	assert.Equal(t, "Hello", st.Result().Translation)
	assert.Equal(t, sel, st.Primary())
	assert.Equal(t, 1, h.renderer.draws)
}

func TestClearIsAcknowledgedBeforeCapture(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)

	assert.Equal(t, []string{"clear:block", "capture:text", "run:text.png", "draw"}, h.log.all())
}

func TestArmedAfterEveryPrimaryRegion(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	require.Equal(t, 1, h.analyzer.runs)

	// Watching with an unchanged screen: nothing to do.
	tick(t, h)
	assert.Equal(t, 1, h.analyzer.runs)

	// A new selection always forces a pass even though nothing changed.
	other := region.New(200, 200, 80, 40, region.Context{})
	h.queue.Push(events.RegionEvent{Box: other, Role: events.Primary})
	tick(t, h)
	assert.Equal(t, 2, h.analyzer.runs)
	assert.Equal(t, other, h.capture.captured[len(h.capture.captured)-1])
}

func TestChangeDetectionTriggersPass(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	tick(t, h)
	require.Equal(t, 1, h.analyzer.runs)

	h.capture.changeScreen()
	tick(t, h)
	assert.Equal(t, 2, h.analyzer.runs)

	// References were rebuilt from the changed screen.
	tick(t, h)
	assert.Equal(t, 2, h.analyzer.runs)
}

func TestNoWatchIgnoresScreenChanges(t *testing.T) {
	sel := selection()
	s := defaultSession()
	s.NoWatch = true
	h := newHarness(helloResult(sel, "Hello"), s)
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	h.capture.changeScreen()
	tick(t, h)
	assert.Equal(t, 1, h.analyzer.runs)
	assert.Zero(t, h.capture.grabs)
}

func TestWatchCaptureErrorCountsAsUnchanged(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	h.capture.grabErr = errors.New("display asleep")
	tick(t, h)
	assert.Equal(t, 1, h.analyzer.runs)
}

func TestPipelineErrorStopsWorker(t *testing.T) {
	sel := selection()
	h := newHarness(nil, defaultSession())
	h.analyzer.err = ocr.ErrRecognition
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	h.queue.Push(events.KeyEvent{Key: events.KeyDebug})
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.w.Run(ctx)

	require.ErrorIs(t, err, ocr.ErrRecognition)
	assert.True(t, h.w.Stopped())
	assert.True(t, h.renderer.stopped)
	assert.Equal(t, 1, h.analyzer.runs)
	assert.Equal(t, []region.Box{sel}, h.store.saved)

	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	assert.Equal(t, 1, h.analyzer.runs)
}

func TestRunRestoresAndPersistsSelection(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.store.box, h.store.has = sel, true

	h.renderer.onDraw = h.w.Stop
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.w.Run(ctx))

	assert.Equal(t, 1, h.analyzer.runs)
	assert.Equal(t, []region.Box{sel}, h.store.saved)
}

func TestRunExitsOnContextCancel(t *testing.T) {
	h := newHarness(nil, defaultSession())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.w.Run(ctx))
	assert.Empty(t, h.store.saved)
}

func TestKeyToggles(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)

	cases := []struct {
		key       events.Key
		reprocess bool
	}{
		{events.KeyDebug, true},
		{events.KeyTranslate, true},
		{events.KeyPartsOfSpeech, true},
		{events.KeyFuriganaUp, true},
		{events.KeyClear, false},
		{events.KeyJisho, false},
		{events.KeyCopy, false},
		{events.Key("z"), false},
	}
	for _, c := range cases {
		before := h.analyzer.runs
		h.queue.Push(events.KeyEvent{Key: c.key})
		tick(t, h)
		want := before
		if c.reprocess {
			want++
		}
		assert.Equal(t, want, h.analyzer.runs, "key %q", c.key)
	}

	assert.True(t, h.w.session.Debug)
	assert.False(t, h.w.session.Translate)
	assert.True(t, h.w.session.PartsOfSpeech)
	assert.Equal(t, 14, h.w.session.Settings.FuriganaSize)
	assert.Contains(t, h.log.all(), "clear:async")
}

func TestFuriganaSizeIsClamped(t *testing.T) {
	h := newHarness(nil, defaultSession())
	for i := 0; i < 100; i++ {
		h.w.handle(events.KeyEvent{Key: events.KeyFuriganaDown})
	}
	assert.Equal(t, 6, h.w.session.Settings.FuriganaSize)
}

func TestLookupUsesHoverThenFullText(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)

	h.w.handle(events.KeyEvent{Key: events.KeyWikipediaEN})
	require.Len(t, h.opened, 1)
	assert.Equal(t, "https://en.wikipedia.org/w/index.php?search=%E3%81%93%E3%82%93%E3%81%AB%E3%81%A1%E3%81%AF", h.opened[0])

	h.pointer.p, h.pointer.ok = image.Pt(15, 15), true
	tick(t, h)
	require.NotNil(t, h.w.hover)
	h.w.handle(events.KeyEvent{Key: events.KeyCopy})
	assert.Equal(t, []string{"こんにちは"}, h.copied)
}

func TestHoverTracking(t *testing.T) {
	ctx := region.Context{ScreenX: 100, ScreenY: 100}
	a := tokenizer.WithBox(tokenizer.Token{Surface: "a"}, region.New(0, 0, 50, 20, ctx))
	b := tokenizer.WithBox(tokenizer.Token{Surface: "b"}, region.New(30, 0, 50, 20, ctx))
	tokens := []tokenizer.Token{a, b}

	assert.Equal(t, -1, FindHover(tokens, image.Pt(10, 10)))
	assert.Equal(t, -1, FindHover(tokens, image.Pt(200, 200)))
	assert.Equal(t, 0, FindHover(tokens, image.Pt(140, 110)))
	assert.Equal(t, 1, FindHover(tokens, image.Pt(170, 110)))
	assert.Equal(t, 0, FindHover([]tokenizer.Token{b, a}, image.Pt(140, 110)))
}

func TestHoverTransitionsAndDebugLookup(t *testing.T) {
	sel := selection()
	s := defaultSession()
	s.Debug = true
	h := newHarness(helloResult(sel, ""), s)
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	assert.Nil(t, h.w.hover)

	h.pointer.p, h.pointer.ok = image.Pt(20, 20), true
	tick(t, h)
	require.NotNil(t, h.w.hover)
	assert.Equal(t, "こんにちは", h.w.hover.Surface)
	assert.Equal(t, []string{"こんにちは"}, h.dict.terms)

	tick(t, h)
	assert.Len(t, h.dict.terms, 1)

	h.pointer.p = image.Pt(500, 500)
	tick(t, h)
	assert.Nil(t, h.w.hover)
}

func TestSecondarySelectionIsOneShot(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.analyzer.light = &pipeline.Result{Original: "軍団\n"}
	h.dict.entries = []string{"軍団【ぐんだん】 army corps"}

	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	sec := region.New(300, 300, 40, 20, region.Context{})
	h.queue.Push(events.RegionEvent{Box: sec, Role: events.Secondary})
	tick(t, h)

	assert.Equal(t, 1, h.analyzer.lightRuns)
	assert.Equal(t, []string{"軍団"}, h.dict.terms)
	assert.Equal(t, []string{"軍団", "軍団【ぐんだん】 army corps"}, h.w.state.SecondaryText())
	assert.Equal(t, sec, h.w.state.Secondary())
	assert.Equal(t, "Hello", h.w.state.Result().Translation)

	tick(t, h)
	assert.Equal(t, 1, h.analyzer.lightRuns)
	assert.False(t, h.w.hasSecondary)
}

func TestSecondaryFailureIsNotFatal(t *testing.T) {
	h := newHarness(nil, defaultSession())
	h.dict.err = errors.New("db locked")
	h.queue.Push(events.RegionEvent{Box: selection(), Role: events.Secondary})
	tick(t, h)
	assert.Equal(t, 1, h.analyzer.lightRuns)
	assert.False(t, h.w.hasSecondary)
	assert.Zero(t, h.renderer.draws)

	h.analyzer.light = &pipeline.Result{Original: "語"}
	h.queue.Push(events.RegionEvent{Box: selection(), Role: events.Secondary})
	tick(t, h)
	assert.Equal(t, []string{"語"}, h.w.state.SecondaryText())
	assert.Nil(t, h.w.state.Result())
	assert.Zero(t, h.analyzer.runs)
}

func TestSettingsEventAppliesAndRedraws(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)

	s := config.DefaultSettings()
	s.SubtitleSize = 40
	h.queue.Push(events.SettingsEvent{Settings: s})
	tick(t, h)
	assert.Equal(t, 2, h.analyzer.runs)
	assert.Equal(t, 40, h.w.state.Flags().SubtitleSize)
}

func TestFullscreenCapturesWholeScreen(t *testing.T) {
	s := defaultSession()
	s.Fullscreen = true
	h := newHarness(helloResult(region.New(0, 0, 1920, 1080, region.Context{}), ""), s)
	tick(t, h)
	require.Equal(t, 1, h.analyzer.runs)
	assert.Equal(t, []region.Box{h.capture.screen}, h.capture.captured)
}

func TestDeriveWatchBoxesUsesLargestBlock(t *testing.T) {
	target := selection()
	ctx := target.Anchor()
	small := ocr.Char{Text: "小", Box: region.New(0, 0, 20, 20, ctx)}
	large := ocr.Char{Text: "大", Box: region.New(100, 0, 20, 20, ctx)}
	res := &pipeline.Result{Blocks: []ocr.Block{
		{Lines: [][]ocr.Char{{small}}, Box: region.New(0, 0, 5, 2, ctx)},
		{Lines: [][]ocr.Char{{large}}, Box: region.New(100, 0, 10, 5, ctx)},
	}}

	boxes, derived := DeriveWatchBoxes(res, target)
	require.True(t, derived)
	require.Len(t, boxes, 1)
	assert.Equal(t, region.New(105, 5, 10, 10, ctx), boxes[0])
}

func TestDeriveWatchBoxesMiddleLineAndFirstNonPunctuation(t *testing.T) {
	ctx := region.Context{}
	cell := func(text string, col, row int) ocr.Char {
		return ocr.Char{Text: text, Box: region.New(col*20, row*20, 20, 20, ctx)}
	}
	lines := [][]ocr.Char{
		{cell("「", 0, 0), cell("一", 1, 0)},
		{cell("二", 0, 1), cell("三", 1, 1), cell("四", 2, 1)},
		{cell("五", 0, 2)},
	}
	res := &pipeline.Result{Lines: lines, Blocks: []ocr.Block{{Lines: lines, Box: region.New(0, 0, 60, 60, ctx)}}}

	boxes, derived := DeriveWatchBoxes(res, selection())
	require.True(t, derived)
	require.Len(t, boxes, 2)
	assert.Equal(t, region.New(25, 25, 10, 10, ctx), boxes[0], "middle of 三")
	assert.Equal(t, region.New(25, 5, 10, 10, ctx), boxes[1], "一 after the bracket")
}

func TestDeriveWatchBoxesFallbacks(t *testing.T) {
	target := selection()
	boxes, derived := DeriveWatchBoxes(&pipeline.Result{}, target)
	assert.False(t, derived)
	assert.Equal(t, []region.Box{target}, boxes)

	tiny := ocr.Char{Text: "小", Box: region.New(0, 0, 8, 8, region.Context{})}
	boxes, derived = DeriveWatchBoxes(&pipeline.Result{Lines: [][]ocr.Char{{tiny}}}, target)
	assert.True(t, derived)
	assert.Equal(t, []region.Box{tiny.Box}, boxes)

	punct := ocr.Char{Text: "。", Box: region.New(0, 0, 20, 20, region.Context{})}
	_, derived = DeriveWatchBoxes(&pipeline.Result{Lines: [][]ocr.Char{{punct}}}, target)
	assert.False(t, derived)
}

func TestTranslateToggleNeedsTranslator(t *testing.T) {
	sel := selection()
	s := defaultSession()
	s.Translate, s.CanTranslate = false, false
	h := newHarness(helloResult(sel, ""), s)
	h.analyzer.translateErr = errors.New("no translator configured")

	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	h.queue.Push(events.KeyEvent{Key: events.KeyTranslate})
	h.queue.Push(events.KeyEvent{Key: events.KeyDebug})
	h.renderer.onDraw = func() {
		if h.renderer.draws == 2 {
			h.w.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.w.Run(ctx))

	assert.False(t, h.w.session.Translate)
	assert.False(t, h.analyzer.opts.Translate)
	assert.Equal(t, 2, h.analyzer.runs, "translate toggle must not start a pass")
	assert.False(t, h.renderer.stopped)
}

func TestTranslateCanAlwaysBeSwitchedOff(t *testing.T) {
	s := defaultSession()
	s.CanTranslate = false
	h := newHarness(nil, s)
	assert.True(t, h.w.handle(events.KeyEvent{Key: events.KeyTranslate}))
	assert.False(t, h.w.session.Translate)
	assert.False(t, h.w.handle(events.KeyEvent{Key: events.KeyTranslate}))
	assert.False(t, h.w.session.Translate)
}

func TestSessionFromConfigTracksTranslator(t *testing.T) {
	cfg := &config.Config{Translator: config.TranslatorNone, Furigana: config.FuriganaSome, Settings: config.DefaultSettings()}
	assert.False(t, SessionFromConfig(cfg).CanTranslate)
	assert.Equal(t, config.FuriganaSome, SessionFromConfig(cfg).Furigana)

	cfg.Translator = config.TranslatorOllama
	assert.True(t, SessionFromConfig(cfg).CanTranslate)
}

func TestWatchReferenceRetriedAfterGrabFailure(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.capture.grabErr = errors.New("display asleep")
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	require.Equal(t, 1, h.analyzer.runs)
	require.NotEmpty(t, h.w.watch)

	for i := 0; i < 5; i++ {
		tick(t, h)
	}
	assert.Equal(t, 1, h.analyzer.runs, "failed references must not trigger passes")

	// The display is back: the reference is taken, then changes are seen.
	h.capture.grabErr = nil
	tick(t, h)
	tick(t, h)
	assert.Equal(t, 1, h.analyzer.runs)
	for _, wr := range h.w.watch {
		assert.NotNil(t, wr.ref)
	}

	h.capture.changeScreen()
	tick(t, h)
	assert.Equal(t, 2, h.analyzer.runs)
}

func TestSecondaryCaptureFollowsClear(t *testing.T) {
	sel := selection()
	h := newHarness(helloResult(sel, "Hello"), defaultSession())
	h.analyzer.light = &pipeline.Result{Original: "語"}
	h.queue.Push(events.RegionEvent{Box: sel, Role: events.Primary})
	tick(t, h)
	n := len(h.log.all())

	h.queue.Push(events.RegionEvent{Box: region.New(20, 20, 30, 20, region.Context{}), Role: events.Secondary})
	tick(t, h)

	assert.Equal(t, []string{
		"clear:block",
		"capture:secondary",
		"light:secondary.png",
		"capture:text",
		"run:text.png",
		"draw",
	}, h.log.all()[n:])
}
