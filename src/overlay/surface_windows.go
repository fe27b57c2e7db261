//go:build windows

package overlay

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	wmPresent        = win.WM_USER + 1
	swShowNoActivate = 4

	acSrcOver  = 0x00
	acSrcAlpha = 0x01
	ulwAlpha   = 0x02
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procUpdateLayeredWindow = user32.NewProc("UpdateLayeredWindow")

	// activeWindow is only touched on the window thread.
	activeWindow *WindowSurface
)

// ErrWindowClosed is returned by Present after the window is gone.
var ErrWindowClosed = errors.New("overlay window closed")

type blendFunction struct {
	BlendOp             byte
	BlendFlags          byte
	SourceConstantAlpha byte
	AlphaFormat         byte
}

// WindowSurface shows ImageSurface frames in a borderless, topmost, layered
// window over the virtual screen. The window passes mouse input through and
// never takes focus. It owns a locked OS thread running its message loop;
// Present hands each frame to that thread and returns once it is on screen.
type WindowSurface struct {
	*ImageSurface
	origin image.Point
	size   image.Point

	className  *uint16
	hwnd       win.HWND
	memDC      win.HDC
	bmp        win.HBITMAP
	old        win.HGDIOBJ
	bits       []byte
	presentErr error
	done       chan struct{}
}

// OpenSurface creates the overlay window covering opts.Bounds.
func OpenSurface(opts SurfaceOptions, logger *slog.Logger) (ScreenSurface, error) {
	if opts.Bounds.Empty() {
		return nil, fmt.Errorf("overlay bounds %v are empty", opts.Bounds)
	}
	s := &WindowSurface{
		ImageSurface: NewImageSurface(opts.Bounds.Size(), opts.FrameDir, logger),
		origin:       opts.Bounds.Min,
		size:         opts.Bounds.Size(),
		done:         make(chan struct{}),
	}
	loadFont(s.ImageSurface, opts.FontPath, logger)

	ready := make(chan error, 1)
	go s.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	logger.Info("overlay window created", "origin", s.origin, "size", s.size)
	return s, nil
}

func (s *WindowSurface) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	if err := s.create(); err != nil {
		s.release()
		ready <- err
		return
	}
	ready <- nil
	defer s.release()

	var msg win.MSG
	for {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			return
		case -1:
			s.logger.Error("overlay window message loop failed")
			return
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func (s *WindowSurface) create() error {
	s.className = syscall.StringToUTF16Ptr("ScreenOCROverlay")
	hInstance := win.GetModuleHandle(nil)
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   syscall.NewCallback(overlayWndProc),
		HInstance:     hInstance,
		LpszClassName: s.className,
	}
	if win.RegisterClassEx(&wc) == 0 {
		return fmt.Errorf("failed to register overlay window class")
	}

	activeWindow = s
	s.hwnd = win.CreateWindowEx(
		win.WS_EX_LAYERED|win.WS_EX_TRANSPARENT|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW|win.WS_EX_NOACTIVATE,
		s.className,
		nil,
		win.WS_POPUP,
		int32(s.origin.X), int32(s.origin.Y), int32(s.size.X), int32(s.size.Y),
		0, 0, hInstance, nil,
	)
	if s.hwnd == 0 {
		return fmt.Errorf("failed to create overlay window")
	}

	screenDC := win.GetDC(0)
	defer win.ReleaseDC(0, screenDC)
	s.memDC = win.CreateCompatibleDC(screenDC)
	if s.memDC == 0 {
		return fmt.Errorf("failed to create overlay memory DC")
	}

	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(s.size.X),
		BiHeight:      -int32(s.size.Y), // top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	s.bmp = win.CreateDIBSection(s.memDC, &header, win.DIB_RGB_COLORS, &bits, 0, 0)
	if s.bmp == 0 {
		return fmt.Errorf("failed to create overlay bitmap %dx%d", s.size.X, s.size.Y)
	}
	s.old = win.SelectObject(s.memDC, win.HGDIOBJ(s.bmp))
	s.bits = unsafe.Slice((*byte)(bits), s.size.X*s.size.Y*4)

	win.ShowWindow(s.hwnd, swShowNoActivate)
	return nil
}

func (s *WindowSurface) release() {
	if s.memDC != 0 {
		if s.old != 0 {
			win.SelectObject(s.memDC, s.old)
		}
		if s.bmp != 0 {
			win.DeleteObject(win.HGDIOBJ(s.bmp))
		}
		win.DeleteDC(s.memDC)
		s.memDC = 0
	}
	if s.hwnd != 0 {
		win.DestroyWindow(s.hwnd)
	}
	if s.className != nil {
		win.UnregisterClass(s.className)
	}
	activeWindow = nil
}

// update copies the frame into the DIB and pushes it to the window.
func (s *WindowSurface) update() error {
	s.withPixels(func(img *image.RGBA) { toBGRA(s.bits, img.Pix) })

	dst := win.POINT{X: int32(s.origin.X), Y: int32(s.origin.Y)}
	size := win.SIZE{CX: int32(s.size.X), CY: int32(s.size.Y)}
	var src win.POINT
	blend := blendFunction{BlendOp: acSrcOver, SourceConstantAlpha: 255, AlphaFormat: acSrcAlpha}
	r, _, err := procUpdateLayeredWindow.Call(
		uintptr(s.hwnd), 0,
		uintptr(unsafe.Pointer(&dst)), uintptr(unsafe.Pointer(&size)),
		uintptr(s.memDC), uintptr(unsafe.Pointer(&src)),
		0, uintptr(unsafe.Pointer(&blend)), ulwAlpha,
	)
	if r == 0 {
		return fmt.Errorf("UpdateLayeredWindow: %w", err)
	}
	return nil
}

// Present dumps the frame if configured and shows it. It blocks until the
// window thread has applied the frame.
func (s *WindowSurface) Present() error {
	if err := s.ImageSurface.Present(); err != nil {
		s.logger.Warn("failed to write frame", "error", err)
	}
	select {
	case <-s.done:
		return ErrWindowClosed
	default:
	}
	win.SendMessage(s.hwnd, wmPresent, 0, 0)
	return s.presentErr
}

// Close destroys the window and waits for its thread to exit.
func (s *WindowSurface) Close() error {
	select {
	case <-s.done:
	default:
		win.PostMessage(s.hwnd, win.WM_CLOSE, 0, 0)
		<-s.done
	}
	return s.ImageSurface.Close()
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmPresent:
		if s := activeWindow; s != nil {
			s.presentErr = s.update()
		}
		return 0
	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		if s := activeWindow; s != nil {
			s.hwnd = 0
		}
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
