package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/otiai10/gosseract"

	"screen-ocr-overlay/src/region"
)

// Tesseract recognizes locally through libtesseract.
type Tesseract struct {
	lang   string
	logger *slog.Logger
}

// NewTesseract uses the given traineddata language, e.g. "jpn".
func NewTesseract(lang string, logger *slog.Logger) *Tesseract {
	return &Tesseract{lang: lang, logger: logger}
}

// Recognize runs symbol, line and block iterators over the image and folds
// the symbols into their lines.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string, rc region.Context) (*RawData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return nil, fmt.Errorf("%w: set language %q: %v", ErrRecognition, t.lang, err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("%w: set image: %v", ErrRecognition, err)
	}

	symbols, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("%w: symbols: %v", ErrRecognition, err)
	}
	lineBoxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: lines: %v", ErrRecognition, err)
	}
	blockBoxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("%w: blocks: %v", ErrRecognition, err)
	}

	syms := make([]symbol, 0, len(symbols))
	for _, s := range symbols {
		syms = append(syms, symbol{text: s.Word, conf: s.Confidence, rect: s.Box})
	}
	lineRects := make([]image.Rectangle, len(lineBoxes))
	for i, l := range lineBoxes {
		lineRects[i] = l.Box
	}
	blockRects := make([]image.Rectangle, len(blockBoxes))
	for i, b := range blockBoxes {
		blockRects[i] = b.Box
	}

	raw := &RawData{Lines: groupLines(syms, lineRects, rc)}
	raw.Blocks = assignBlocks(raw.Lines, blockRects, rc)
	t.logger.Debug("tesseract recognized", "symbols", len(syms), "lines", len(raw.Lines), "blocks", len(raw.Blocks))
	return raw, nil
}

type symbol struct {
	text string
	conf float64
	rect image.Rectangle
}

// groupLines puts each symbol in the first line rectangle containing its
// centre. Symbols outside every line are dropped; empty lines are skipped.
func groupLines(syms []symbol, lines []image.Rectangle, rc region.Context) [][]Char {
	buckets := make([][]Char, len(lines))
	for _, s := range syms {
		if s.text == "" {
			continue
		}
		centre := image.Pt((s.rect.Min.X+s.rect.Max.X)/2, (s.rect.Min.Y+s.rect.Max.Y)/2)
		for i, l := range lines {
			if centre.In(l) {
				buckets[i] = append(buckets[i], Char{
					Text: s.text,
					Conf: s.conf,
					Box:  region.New(s.rect.Min.X, s.rect.Min.Y, s.rect.Dx(), s.rect.Dy(), rc),
				})
				break
			}
		}
	}
	out := make([][]Char, 0, len(buckets))
	for _, b := range buckets {
		if len(b) == 0 {
			continue
		}
		for i := range b {
			b[i].Line = len(out)
		}
		out = append(out, b)
	}
	return out
}
