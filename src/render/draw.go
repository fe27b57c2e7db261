package render

import (
	"image"
	"image/color"
	"strings"

	"screen-ocr-overlay/src/region"
)

// Canvas is the drawing surface, addressed in overlay client coordinates.
// Text is placed by its top-left corner.
type Canvas interface {
	Size() image.Point
	StrokeRect(r image.Rectangle, c color.RGBA, width int)
	FillRect(r image.Rectangle, c color.RGBA)
	Circle(centre image.Point, radius int, c color.RGBA, fill bool)
	Text(s string, at image.Point, size int, c color.RGBA)
	MeasureText(s string, size int) image.Point
}

var (
	Black  = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	White  = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	Red    = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	Green  = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
	Blue   = color.RGBA{0x00, 0x00, 0xFF, 0xFF}
	Person = color.RGBA{0x35, 0xA1, 0x6B, 0xFF}
	Place  = color.RGBA{0xFF, 0x7F, 0x00, 0xFF}
)

const (
	lowConfidence    = 50
	nameStrokeWidth  = 3
	furiganaBaseline = 4
)

// Draw paints one frame of st onto c.
func Draw(c Canvas, st State) {
	f := st.flags
	res := st.result

	if res != nil && f.PartsOfSpeech {
		for _, t := range res.Tokens {
			switch {
			case t.IsPersonName():
				c.StrokeRect(t.Box().Rect(region.Client), Person, nameStrokeWidth)
			case t.IsPlaceName():
				c.StrokeRect(t.Box().Rect(region.Client), Place, nameStrokeWidth)
			}
		}
	}

	if f.Debug {
		if !st.primary.Empty() {
			c.StrokeRect(st.primary.Rect(region.Client), Blue, 1)
		}
		if !st.secondary.Empty() {
			c.StrokeRect(st.secondary.Rect(region.Client), Blue, 1)
		}
	}

	if res != nil {
		for _, line := range res.Lines {
			for _, ch := range line {
				if ch.Conf >= lowConfidence {
					continue
				}
				r := ch.Box.Rect(region.Client)
				centre := image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
				c.Circle(centre, r.Dx()/2, Red, false)
			}
		}

		if f.Debug {
			for _, b := range res.Blocks {
				c.StrokeRect(b.Box.Rect(region.Client), Green, 1)
			}
		}

		anchor := st.primary.Anchor()
		for _, fg := range res.Furigana {
			size := c.MeasureText(fg.Reading, f.FuriganaSize)
			at := image.Pt(anchor.ClientX+fg.X-size.X/2, anchor.ClientY+fg.Y-furiganaBaseline-size.Y)
			c.Text(fg.Reading, at, f.FuriganaSize, Black)
		}

		switch {
		case res.Translation != "":
			subtitles(c, f, res.Translation, image.Pt(-1, -1), up)
		case f.Debug && res.Original != "":
			subtitles(c, f, res.Original, image.Pt(-1, -1), up)
		}
	}

	if st.HasSecondary() {
		r := st.secondary.Rect(region.Client)
		origin := image.Pt(r.Min.X+r.Dx()/2, r.Max.Y)
		subtitles(c, f, strings.Join(st.secondaryText, "\n"), origin, down)
	}
}

type direction int

const (
	up   direction = -1
	down direction = 1
)

// subtitles stacks boxed lines horizontally centred on origin. A negative
// origin coordinate means the bottom centre of the canvas. Upward stacks
// are reversed so the first line stays on top.
func subtitles(c Canvas, f Flags, text string, origin image.Point, dir direction) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return
	}
	size := c.Size()
	if origin.X < 0 {
		origin.X = size.X / 2
	}
	if origin.Y < 0 {
		origin.Y = size.Y
	}
	if dir == up {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}

	m := f.SubtitleMargin
	y := origin.Y
	for _, line := range lines {
		ts := c.MeasureText(line, f.SubtitleSize)
		h := ts.Y + m
		if dir == up {
			y -= h
		}
		x := origin.X - (ts.X+m)/2
		if f.Debug {
			c.Circle(image.Pt(x, y), 2, Red, true)
		}
		c.FillRect(image.Rect(x, y, x+ts.X+m, y+h), Black)
		c.Text(line, image.Pt(x+m/2, y+m/2), f.SubtitleSize, White)
		if dir == down {
			y += h
		}
	}
}
