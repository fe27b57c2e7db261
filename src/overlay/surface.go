package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"screen-ocr-overlay/src/screenshot"
)

// FontCandidates are tried in order when no font path is configured. Each
// covers kana and kanji.
var FontCandidates = []string{
	`C:\Windows\Fonts\YuGothM.ttc`,
	`C:\Windows\Fonts\msgothic.ttc`,
	`C:\Windows\Fonts\meiryo.ttc`,
	"/System/Library/Fonts/ヒラギノ角ゴシック W3.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
}

// ErrNoFont is returned by LoadFont when no candidate file exists.
var ErrNoFont = errors.New("no overlay font found")

// ImageSurface rasterizes frames into an RGBA buffer the size of the overlay.
// When dir is set every presented frame is also written there as PNG. Text
// uses the loaded TrueType font at the requested size, or a 7x13 bitmap face
// (ASCII only) when none is loaded.
type ImageSurface struct {
	mu     sync.Mutex
	img    *image.RGBA
	font   *opentype.Font
	faces  map[int]font.Face
	dir    string
	frames int
	logger *slog.Logger
}

func NewImageSurface(size image.Point, dir string, logger *slog.Logger) *ImageSurface {
	return &ImageSurface{
		img:    image.NewRGBA(image.Rectangle{Max: size}),
		faces:  map[int]font.Face{},
		dir:    dir,
		logger: logger,
	}
}

// LoadFont reads the font at path, or the first existing FontCandidates
// entry when path is empty.
func (s *ImageSurface) LoadFont(path string) error {
	paths := FontCandidates
	if path != "" {
		paths = []string{path}
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return fmt.Errorf("read font: %w", err)
		}
		if err := s.UseFont(data); err != nil {
			return fmt.Errorf("font %s: %w", p, err)
		}
		s.logger.Info("overlay font loaded", "path", p)
		return nil
	}
	return ErrNoFont
}

// UseFont parses a TrueType/OpenType font or the first font of a collection.
func (s *ImageSurface) UseFont(data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		c, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return err
		}
		if f, err = c.Font(0); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, face := range s.faces {
		face.Close()
	}
	s.font, s.faces = f, map[int]font.Face{}
	return nil
}

// faceFor returns the face for size. Callers hold s.mu.
func (s *ImageSurface) faceFor(size int) font.Face {
	if s.font == nil || size <= 0 {
		return basicfont.Face7x13
	}
	if face, ok := s.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		s.logger.Warn("failed to size overlay font", "size", size, "error", err)
		return basicfont.Face7x13
	}
	s.faces[size] = face
	return face
}

func (s *ImageSurface) Size() image.Point { return s.img.Bounds().Size() }

func (s *ImageSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (s *ImageSurface) FillRect(r image.Rectangle, c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *ImageSurface) StrokeRect(r image.Rectangle, c color.RGBA, width int) {
	width = max(width, 1)
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	s.FillRect(image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	s.FillRect(image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func (s *ImageSurface) Circle(centre image.Point, radius int, c color.RGBA, fill bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outer := radius * radius
	inner := (radius - 1) * (radius - 1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := dx*dx + dy*dy
			if d > outer || (!fill && d <= inner) {
				continue
			}
			s.img.SetRGBA(centre.X+dx, centre.Y+dy, c)
		}
	}
}

// Text draws str with its top-left corner at at.
func (s *ImageSurface) Text(str string, at image.Point, size int, c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.faceFor(size)
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(str)
}

func (s *ImageSurface) MeasureText(str string, size int) image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.faceFor(size)
	w := font.MeasureString(face, str)
	return image.Pt(w.Ceil(), face.Metrics().Height.Ceil())
}

// Present counts the frame and dumps it when a frame directory is set.
func (s *ImageSurface) Present() error {
	s.mu.Lock()
	s.frames++
	n := s.frames
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	path := filepath.Join(s.dir, fmt.Sprintf("frame-%06d.png", n))
	if err := screenshot.Save(s.Frame(), path); err != nil {
		return err
	}
	s.logger.Debug("presented frame", "path", path)
	return nil
}

// Frame returns a copy of the current buffer.
func (s *ImageSurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// withPixels runs fn on the live RGBA buffer under the surface lock.
func (s *ImageSurface) withPixels(fn func(img *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.img)
}

// Close releases the sized faces.
func (s *ImageSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, face := range s.faces {
		face.Close()
	}
	s.faces = map[int]font.Face{}
	return nil
}

// toBGRA copies premultiplied RGBA pixels into a 32-bit DIB, which stores
// blue first.
func toBGRA(dst, src []byte) {
	n := min(len(dst), len(src)) &^ 3
	for i := 0; i < n; i += 4 {
		dst[i], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i], src[i+3]
	}
}

// Frames reports how many frames have been presented.
func (s *ImageSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// SurfaceOptions configure the shipped surface.
type SurfaceOptions struct {
	// Bounds is the virtual screen the overlay covers.
	Bounds image.Rectangle
	// FrameDir receives a PNG per presented frame when set.
	FrameDir string
	// FontPath overrides FontCandidates.
	FontPath string
}

// ScreenSurface is a Surface holding resources that outlive the render loop.
type ScreenSurface interface {
	Surface
	Close() error
}

func loadFont(s *ImageSurface, path string, logger *slog.Logger) {
	if err := s.LoadFont(path); err != nil {
		logger.Warn("no overlay font, text is limited to ASCII", "path", path, "error", err)
	}
}
