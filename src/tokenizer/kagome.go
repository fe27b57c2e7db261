package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"screen-ocr-overlay/src/kana"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/region"
)

// Tokenizer splits text laid out in recognized lines.
type Tokenizer interface {
	Tokenize(text string, lines [][]ocr.Char) []Token
}

// Kagome tokenizes with the IPA dictionary.
type Kagome struct {
	t *tokenizer.Tokenizer
}

func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer dictionary: %w", err)
	}
	return &Kagome{t: t}, nil
}

// Tokenize splits text on newlines and tokenizes each line separately so no
// token crosses a line. Line i is anchored to lines[i] when present; tokens
// without a layout get an empty box.
func (k *Kagome) Tokenize(text string, lines [][]ocr.Char) []Token {
	var out []Token
	for lineNum, lineText := range strings.Split(text, "\n") {
		if lineText == "" {
			continue
		}
		var chars []ocr.Char
		if lineNum < len(lines) {
			chars = lines[lineNum]
		}
		index := runeIndex(chars)

		cursor := 0
		for _, m := range k.t.Tokenize(lineText) {
			if m.Surface == "" {
				continue
			}
			at := strings.Index(lineText[cursor:], m.Surface)
			if at < 0 {
				continue
			}
			startByte := cursor + at
			cursor = startByte + len(m.Surface)
			startRune := utf8.RuneCountInString(lineText[:startByte])
			endRune := startRune + utf8.RuneCountInString(m.Surface)

			tok := Token{Surface: m.Surface, POS: m.POS(), Line: lineNum}
			if r, ok := m.Reading(); ok && r != featureMissing {
				tok.Reading = kana.ToHiragana(r)
			}
			if b, ok := m.BaseForm(); ok {
				tok.BaseForm = b
			}
			anchor(&tok, chars, index, startRune, endRune)
			out = append(out, tok)
		}
	}
	return out
}

// runeIndex maps each rune of the joined line text to its character.
func runeIndex(chars []ocr.Char) []int {
	var idx []int
	for i, c := range chars {
		for range c.Text {
			idx = append(idx, i)
		}
	}
	return idx
}

func anchor(tok *Token, chars []ocr.Char, index []int, startRune, endRune int) {
	if startRune >= len(index) || endRune < 1 {
		return
	}
	endRune = min(endRune, len(index))
	first, last := index[startRune], index[endRune-1]
	tok.Char = first
	tok.Length = last - first + 1

	fb, lb := chars[first].Box, chars[last].Box
	tok.box = region.New(fb.Left(), fb.Top(), lb.Right()-fb.Left(), fb.Height(), fb.Context())
}

// WithBox returns a copy of t anchored to box. Used when tokens come from a
// source without character layout.
func WithBox(t Token, box region.Box) Token {
	t.box = box
	return t
}
