// Package region models rectangles anchored to one of several coordinate
// spaces: local (relative to a parent box), screen, and overlay client space.
package region

import (
	"fmt"
	"image"
)

// Space names a coordinate space a Box can be projected into.
type Space int

const (
	Local Space = iota
	Screen
	Client
)

func (s Space) String() string {
	switch s {
	case Local:
		return "local"
	case Screen:
		return "screen"
	case Client:
		return "client"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// Context holds the offsets that translate local coordinates into screen
// space and into the overlay's client space.
type Context struct {
	ScreenX int
	ScreenY int
	ClientX int
	ClientY int
}

// Box is an immutable rectangle in local coordinates plus the Context that
// anchors it. Width and height are never negative.
type Box struct {
	left   int
	top    int
	width  int
	height int
	ctx    Context
}

// New returns a Box; negative sizes are clamped to zero.
func New(left, top, width, height int, ctx Context) Box {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Box{left: left, top: top, width: width, height: height, ctx: ctx}
}

// FromPoints builds the Box spanned by two corner points in any order.
func FromPoints(x0, y0, x1, y1 int, ctx Context) Box {
	left, right := x0, x1
	if right < left {
		left, right = right, left
	}
	top, bottom := y0, y1
	if bottom < top {
		top, bottom = bottom, top
	}
	return New(left, top, right-left, bottom-top, ctx)
}

func (b Box) Left() int        { return b.left }
func (b Box) Top() int         { return b.top }
func (b Box) Width() int       { return b.width }
func (b Box) Height() int      { return b.height }
func (b Box) Right() int       { return b.left + b.width }
func (b Box) Bottom() int      { return b.top + b.height }
func (b Box) Area() int        { return b.width * b.height }
func (b Box) Context() Context { return b.ctx }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.width <= 0 || b.height <= 0 }

// Rect projects the box into the given space.
func (b Box) Rect(space Space) image.Rectangle {
	dx, dy := 0, 0
	switch space {
	case Screen:
		dx, dy = b.ctx.ScreenX, b.ctx.ScreenY
	case Client:
		dx, dy = b.ctx.ClientX, b.ctx.ClientY
	}
	return image.Rect(b.left+dx, b.top+dy, b.left+dx+b.width, b.top+dy+b.height)
}

// Anchor returns the Context for boxes expressed relative to this one.
func (b Box) Anchor() Context {
	return Context{
		ScreenX: b.ctx.ScreenX + b.left,
		ScreenY: b.ctx.ScreenY + b.top,
		ClientX: b.ctx.ClientX + b.left,
		ClientY: b.ctx.ClientY + b.top,
	}
}

// Child returns a box positioned relative to b's top-left corner.
func (b Box) Child(left, top, width, height int) Box {
	return New(left, top, width, height, b.Anchor())
}

// Shrink insets every side by margin. ok is false when the result would
// have no area, in which case b is returned unchanged.
func (b Box) Shrink(margin int) (Box, bool) {
	w := b.width - 2*margin
	h := b.height - 2*margin
	if w <= 0 || h <= 0 {
		return b, false
	}
	return Box{left: b.left + margin, top: b.top + margin, width: w, height: h, ctx: b.ctx}, true
}

// Contains reports whether p, expressed in space, lies inside the box.
func (b Box) Contains(space Space, p image.Point) bool {
	return p.In(b.Rect(space))
}

// Equal compares geometry and context exactly.
func (b Box) Equal(o Box) bool { return b == o }

func (b Box) String() string {
	return fmt.Sprintf("Box(%d,%d %dx%d @screen%+d%+d)", b.left, b.top, b.width, b.height, b.ctx.ScreenX, b.ctx.ScreenY)
}
