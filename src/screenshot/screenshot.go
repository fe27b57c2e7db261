package screenshot

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"

	"screen-ocr-overlay/src/region"
)

// GrabFunc captures a rectangle of the virtual screen.
type GrabFunc func(r image.Rectangle) (*image.RGBA, error)

// Shot is a captured region written to disk so external engines can read it.
type Shot struct {
	Path  string
	Image *image.RGBA
	Box   region.Box
}

// Service captures screen regions into a working directory.
type Service struct {
	dir    string
	logger *slog.Logger
	grab   GrabFunc
	bounds func() (image.Rectangle, error)
}

// NewService captures with kbinani/screenshot and writes files under dir.
func NewService(dir string, logger *slog.Logger) *Service {
	return &Service{dir: dir, logger: logger, grab: screenshot.CaptureRect, bounds: VirtualScreenBounds}
}

// NewServiceWith is NewService with injectable capture primitives.
func NewServiceWith(dir string, logger *slog.Logger, grab GrabFunc, bounds func() (image.Rectangle, error)) *Service {
	return &Service{dir: dir, logger: logger, grab: grab, bounds: bounds}
}

// Dir returns the working directory.
func (s *Service) Dir() string { return s.dir }

// Grab captures box (projected into screen space) without touching disk.
func (s *Service) Grab(box region.Box) (*image.RGBA, error) {
	if box.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", box.Width(), box.Height())
	}
	img, err := s.grab(box.Rect(region.Screen))
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

// Capture grabs box and writes it to <dir>/<name>.png.
func (s *Service) Capture(box region.Box, name string) (Shot, error) {
	img, err := s.Grab(box)
	if err != nil {
		return Shot{}, err
	}
	path := filepath.Join(s.dir, name+".png")
	if err := Save(img, path); err != nil {
		return Shot{}, err
	}
	s.logger.Debug("captured region", "box", box.String(), "path", path)
	return Shot{Path: path, Image: img, Box: box}, nil
}

// ScreenBox returns the virtual screen as a box in screen coordinates.
func (s *Service) ScreenBox() (region.Box, error) {
	r, err := s.bounds()
	if err != nil {
		return region.Box{}, err
	}
	return region.New(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), ScreenContext(r)), nil
}

// ScreenContext is the Context for boxes given in screen coordinates, for an
// overlay covering the virtual screen bounds.
func ScreenContext(bounds image.Rectangle) region.Context {
	return region.Context{ClientX: -bounds.Min.X, ClientY: -bounds.Min.Y}
}

// CaptureScreen captures the entire virtual screen to <dir>/<name>.png.
func (s *Service) CaptureScreen(name string) (Shot, error) {
	box, err := s.ScreenBox()
	if err != nil {
		return Shot{}, err
	}
	return s.Capture(box, name)
}

// Save writes img as PNG, creating parent directories.
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return nil
}

// VirtualScreenBounds returns the union of all active displays.
func VirtualScreenBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// NoteName builds a dated, timed file stem like
// screenshot-2024-01-02-T150405_123.
func NoteName(now time.Time) string {
	return fmt.Sprintf("screenshot-%s-T%s_%03d", now.Format("2006-01-02"), now.Format("150405"), now.Nanosecond()/int(time.Millisecond))
}
