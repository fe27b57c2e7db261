package region

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClampsNegativeSize(t *testing.T) {
	b := New(5, 5, -3, -1, Context{})
	assert.Equal(t, 0, b.Width())
	assert.Equal(t, 0, b.Height())
	assert.True(t, b.Empty())
}

func TestFromPointsNormalizes(t *testing.T) {
	b := FromPoints(110, 60, 10, 10, Context{})
	assert.Equal(t, image.Rect(10, 10, 110, 60), b.Rect(Local))
}

func TestRectProjectsIntoSpaces(t *testing.T) {
	b := New(10, 20, 30, 40, Context{ScreenX: 100, ScreenY: 200, ClientX: 1, ClientY: 2})
	assert.Equal(t, image.Rect(10, 20, 40, 60), b.Rect(Local))
	assert.Equal(t, image.Rect(110, 220, 140, 260), b.Rect(Screen))
	assert.Equal(t, image.Rect(11, 22, 41, 62), b.Rect(Client))
}

func TestChildIsAnchoredToParent(t *testing.T) {
	parent := New(10, 10, 100, 50, Context{ScreenX: 5, ScreenY: 5})
	child := parent.Child(2, 3, 4, 5)
	assert.Equal(t, image.Rect(17, 18, 21, 23), child.Rect(Screen))
	assert.Equal(t, image.Rect(2, 3, 6, 8), child.Rect(Local))
}

func TestShrink(t *testing.T) {
	b := New(0, 0, 20, 20, Context{})
	s, ok := b.Shrink(5)
	assert.True(t, ok)
	assert.Equal(t, image.Rect(5, 5, 15, 15), s.Rect(Local))

	small := New(0, 0, 8, 30, Context{})
	s, ok = small.Shrink(5)
	assert.False(t, ok)
	assert.Equal(t, small, s)
}

func TestContains(t *testing.T) {
	b := New(0, 0, 10, 10, Context{ScreenX: 100, ScreenY: 100})
	assert.True(t, b.Contains(Screen, image.Pt(105, 105)))
	assert.False(t, b.Contains(Screen, image.Pt(5, 5)))
	assert.False(t, b.Contains(Screen, image.Pt(110, 105)))
}
