// Package tokenizer segments recognized text into morphological tokens and
// anchors each token to the character boxes it came from.
package tokenizer

import (
	"screen-ocr-overlay/src/kana"
	"screen-ocr-overlay/src/region"
)

// IPA dictionary part-of-speech labels used by the predicates below.
const (
	posSymbol      = "記号"
	posParticle    = "助詞"
	posAuxVerb     = "助動詞"
	posNumeral     = "数"
	posProperNoun  = "固有名詞"
	posPersonName  = "人名"
	posRegion      = "地域"
	posPlaceName   = "地名"
	posWhitespace  = "空白"
	featureMissing = "*"
)

// Token is one morpheme with its position in the recognized layout.
type Token struct {
	Surface  string
	Reading  string
	BaseForm string
	POS      []string

	// Line and Char index the first character in the recognizer's lines;
	// Length counts characters.
	Line   int
	Char   int
	Length int

	box region.Box
}

// Box spans the token's first to last character, using the first
// character's top and height.
func (t Token) Box() region.Box { return t.box }

func (t Token) pos(i int) string {
	if i < len(t.POS) {
		return t.POS[i]
	}
	return ""
}

// HasKanji is false for numerals, symbols, whitespace, ASCII and all-kana
// surfaces.
func (t Token) HasKanji() bool {
	switch {
	case t.pos(1) == posNumeral, t.pos(0) == posSymbol, t.pos(1) == posWhitespace:
		return false
	case kana.IsASCII(t.Surface), kana.AllKana(t.Surface):
		return false
	}
	return kana.HasKanji(t.Surface)
}

func (t Token) IsProperNoun() bool { return t.pos(1) == posProperNoun }
func (t Token) IsPersonName() bool { return t.pos(1) == posProperNoun && t.pos(2) == posPersonName }

func (t Token) IsPlaceName() bool {
	return t.pos(1) == posProperNoun && (t.pos(2) == posRegion || t.pos(2) == posPlaceName)
}

// IsContent reports whether the token is worth recording as vocabulary.
func (t Token) IsContent() bool {
	switch t.pos(0) {
	case posSymbol, posParticle, posAuxVerb:
		return false
	}
	if t.pos(1) == posNumeral || t.pos(1) == posWhitespace {
		return false
	}
	return t.Surface != "" && !kana.IsASCII(t.Surface)
}

// DictionaryForm is the base form, or the surface when the dictionary has
// none.
func (t Token) DictionaryForm() string {
	if t.BaseForm == "" || t.BaseForm == featureMissing {
		return t.Surface
	}
	return t.BaseForm
}
