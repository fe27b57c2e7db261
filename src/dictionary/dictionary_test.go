package dictionary

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-ocr-overlay/src/logutil"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "dict.db"), logutil.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLookupMatchesKanjiAndKana(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.AddEntries(ctx, []Entry{
		{Kanji: "軍団", Kana: "ぐんだん", Gloss: "army corps"},
		{Kana: "とき", Gloss: "time; moment"},
	}))

	got, err := s.Lookup(ctx, "軍団")
	require.NoError(t, err)
	assert.Equal(t, []string{"軍団【ぐんだん】 army corps"}, got)

	got, err = s.Lookup(ctx, " ぐんだん ")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Lookup(ctx, "とき")
	require.NoError(t, err)
	assert.Equal(t, []string{"とき time; moment"}, got)
}

func TestLookupMissIsEmpty(t *testing.T) {
	s := openTemp(t)
	got, err := s.Lookup(context.Background(), "無い")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveVocabularyCountsOncePerPass(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.SaveVocabulary(ctx, []string{"戦闘", "なる", "とき", "なる", "とき"}))
	require.NoError(t, s.SaveVocabulary(ctx, []string{"戦闘"}))

	words, err := s.Vocabulary(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, w := range words {
		counts[w.Word] = w.Count
	}
	assert.Equal(t, map[string]int{"戦闘": 2, "なる": 1, "とき": 1}, counts)
	assert.Equal(t, "戦闘", words[0].Word)
}

func TestNopLookup(t *testing.T) {
	got, err := Nop{}.Lookup(context.Background(), "x")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
