// Package ocr defines the recognition data model and the engines that
// produce it.
package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"screen-ocr-overlay/src/region"
)

// ErrRecognition wraps every engine failure.
var ErrRecognition = errors.New("recognition failed")

// Char is one recognized character. Box is local to the recognized image and
// carries the capture's coordinate context.
type Char struct {
	Text string
	Line int
	Conf float64
	Box  region.Box
}

// Block is an engine-reported block of text with the lines that fall in it.
type Block struct {
	Lines [][]Char
	Box   region.Box
}

// RawData is the structured output of a recognizer.
type RawData struct {
	Lines  [][]Char
	Blocks []Block
}

// Recognizer turns an image file into lines of character boxes.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string, rc region.Context) (*RawData, error)
}

// Text joins every line, newline separated.
func (d *RawData) Text() string {
	if d == nil {
		return ""
	}
	lines := make([]string, 0, len(d.Lines))
	for _, line := range d.Lines {
		var b strings.Builder
		for _, c := range line {
			b.WriteString(c.Text)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// Empty reports whether nothing was recognized.
func (d *RawData) Empty() bool {
	if d == nil {
		return true
	}
	for _, line := range d.Lines {
		if len(line) > 0 {
			return false
		}
	}
	return true
}

// assignBlocks distributes lines to the block rectangles that contain the
// centre of their first character. Lines outside every block are dropped
// from the block view but stay in RawData.Lines.
func assignBlocks(lines [][]Char, rects []image.Rectangle, rc region.Context) []Block {
	blocks := make([]Block, len(rects))
	for i, r := range rects {
		blocks[i].Box = region.New(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), rc)
	}
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		first := line[0].Box
		centre := image.Pt(first.Left()+first.Width()/2, first.Top()+first.Height()/2)
		for i := range blocks {
			if blocks[i].Box.Contains(region.Local, centre) {
				blocks[i].Lines = append(blocks[i].Lines, line)
				break
			}
		}
	}
	out := blocks[:0]
	for _, b := range blocks {
		if len(b.Lines) > 0 {
			out = append(out, b)
		}
	}
	return out
}

func rectFromPoints(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}
