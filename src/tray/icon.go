package tray

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var (
	iconBorder = color.NRGBA{0x00, 0x78, 0xd4, 0xff}
	iconText   = color.NRGBA{0x33, 0x33, 0x33, 0xff}
)

// Icon renders the 16x16 tray icon: a dashed selection rectangle over two
// lines of "text".
func Icon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := 1; i < 15; i++ {
		if i%3 == 2 {
			continue
		}
		img.SetNRGBA(i, 1, iconBorder)
		img.SetNRGBA(i, 14, iconBorder)
		img.SetNRGBA(1, i, iconBorder)
		img.SetNRGBA(14, i, iconBorder)
	}
	for x := 4; x < 12; x++ {
		img.SetNRGBA(x, 6, iconText)
		if x < 10 {
			img.SetNRGBA(x, 9, iconText)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil
	}
	return buf.Bytes()
}
