package watcher

import (
	"context"
	"image"

	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/tokenizer"
)

// FindHover returns the index of the first token whose box contains p in
// screen space, or -1. Tokens may overlap; iteration order breaks ties.
func FindHover(tokens []tokenizer.Token, p image.Point) int {
	for i, t := range tokens {
		if t.Box().Contains(region.Screen, p) {
			return i
		}
	}
	return -1
}

func sameToken(a, b *tokenizer.Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Surface == b.Surface && a.Box().Equal(b.Box())
}

func (w *Watcher) updateHover(ctx context.Context) {
	if !w.active() || w.last == nil || w.Pointer == nil {
		return
	}
	p, ok := w.Pointer.Position()
	if !ok {
		return
	}
	var hover *tokenizer.Token
	if i := FindHover(w.last.Tokens, p); i >= 0 {
		t := w.last.Tokens[i]
		hover = &t
	}
	if sameToken(hover, w.hover) {
		return
	}
	w.hover = hover
	if hover == nil {
		w.Logger.Info("hovered token", "surface", nil)
		return
	}
	w.Logger.Info("hovered token", "surface", hover.Surface, "reading", hover.Reading)
	if w.session.Debug {
		entries, err := w.Dictionary.Lookup(ctx, hover.DictionaryForm())
		if err != nil {
			w.Logger.Debug("dictionary lookup failed", "term", hover.DictionaryForm(), "error", err)
			return
		}
		w.Logger.Debug("hover lookup", "term", hover.DictionaryForm(), "entries", entries)
	}
}
