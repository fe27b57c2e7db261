package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/region"
)

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "selection.json")
	store := NewStore(path, logutil.Discard())

	box := region.New(10, 20, 300, 40, region.Context{ScreenX: 1, ScreenY: 2, ClientX: 100, ClientY: 0})
	require.NoError(t, store.Save(box))

	got, ok := store.Load()
	require.True(t, ok)
	assert.True(t, box.Equal(got))
}

func TestLoadMissingFile(t *testing.T) {
	_, ok := NewStore(filepath.Join(t.TempDir(), "none.json"), logutil.Discard()).Load()
	assert.False(t, ok)
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{x:`,
		"missing field": `{"x": 1, "y": 2, "w": 3}`,
		"zero width":    `{"x": 1, "y": 2, "w": 0, "h": 3}`,
		"wrong type":    `{"x": "1", "y": 2, "w": 3, "h": 3}`,
		"not an object": `[1, 2, 3, 4]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "selection.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, ok := NewStore(path, logutil.Discard()).Load()
			assert.False(t, ok)
		})
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "s.json"), logutil.Discard())
	assert.Error(t, store.Save(region.New(0, 0, 0, 5, region.Context{})))
}
