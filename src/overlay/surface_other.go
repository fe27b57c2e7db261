//go:build !windows

package overlay

import "log/slog"

// OpenSurface returns an off-screen ImageSurface. Frames only leave the
// process through the frame directory.
func OpenSurface(opts SurfaceOptions, logger *slog.Logger) (ScreenSurface, error) {
	s := NewImageSurface(opts.Bounds.Size(), opts.FrameDir, logger)
	loadFont(s, opts.FontPath, logger)
	return s, nil
}
