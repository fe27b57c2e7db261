// Package kana holds script predicates for Japanese text.
package kana

import "unicode"

// IsASCII reports whether every rune of s is 7-bit ASCII.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// IsHiragana reports whether r is in the hiragana block.
func IsHiragana(r rune) bool { return r >= 0x3041 && r <= 0x309F }

// IsKatakana reports whether r is katakana, including the prolonged sound mark
// and the halfwidth forms.
func IsKatakana(r rune) bool {
	return (r >= 0x30A0 && r <= 0x30FF) || (r >= 0x31F0 && r <= 0x31FF) || (r >= 0xFF66 && r <= 0xFF9F)
}

// IsKanji reports whether r is a Han ideograph.
func IsKanji(r rune) bool { return unicode.Is(unicode.Han, r) }

// AllKana reports whether s is non-empty and consists only of kana.
func AllKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsHiragana(r) && !IsKatakana(r) {
			return false
		}
	}
	return true
}

// HasKanji reports whether any rune of s is a Han ideograph.
func HasKanji(s string) bool {
	for _, r := range s {
		if IsKanji(r) {
			return true
		}
	}
	return false
}

// IsPunctuation covers ASCII and Unicode punctuation and symbols, the CJK
// symbols block and fullwidth ASCII punctuation.
func IsPunctuation(r rune) bool {
	switch {
	case unicode.IsPunct(r), unicode.IsSymbol(r):
		return true
	case r >= 0x3000 && r <= 0x303F:
		return true
	case r >= 0xFF01 && r <= 0xFF0F, r >= 0xFF1A && r <= 0xFF20,
		r >= 0xFF3B && r <= 0xFF40, r >= 0xFF5B && r <= 0xFF65:
		return true
	}
	return false
}

// ToHiragana folds full-width katakana in s to hiragana. Other runes pass
// through unchanged.
func ToHiragana(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 0x30A1 && r <= 0x30F6 {
			out[i] = r - 0x60
		}
	}
	return string(out)
}
