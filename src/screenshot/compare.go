package screenshot

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultTolerance absorbs small colour noise from capture (cursor blink
// anti-aliasing, dithering) without hiding real text changes.
const DefaultTolerance = 8

// Equal reports whether a and b have the same size and every channel of
// every pixel differs by at most tolerance.
func Equal(a, b image.Image, tolerance uint8) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return false
	}
	na := imaging.Clone(a)
	nb := imaging.Clone(b)
	w, h := na.Rect.Dx(), na.Rect.Dy()
	for y := 0; y < h; y++ {
		ra := na.Pix[y*na.Stride : y*na.Stride+w*4]
		rb := nb.Pix[y*nb.Stride : y*nb.Stride+w*4]
		for i := range ra {
			if absDiff(ra[i], rb[i]) > tolerance {
				return false
			}
		}
	}
	return true
}

func absDiff(x, y uint8) uint8 {
	if x > y {
		return x - y
	}
	return y - x
}
