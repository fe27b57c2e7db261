// Package tray puts the overlay's menu in the system tray.
package tray

import (
	"context"
	"log/slog"

	"github.com/getlantern/systray"

	"screen-ocr-overlay/src/events"
)

// Pusher receives key events chosen from the menu.
type Pusher interface {
	Push(e events.Event)
}

type item struct {
	title   string
	tooltip string
	key     events.Key
}

var items = []item{
	{"Debug", "Toggle debug drawing", events.KeyDebug},
	{"Translate", "Toggle translation", events.KeyTranslate},
	{"Parts of speech", "Toggle name and place highlighting", events.KeyPartsOfSpeech},
	{"Clear", "Clear the overlay and stop watching", events.KeyClear},
}

// Menu owns the tray icon. Menu items act like the matching overlay keys.
type Menu struct {
	out    Pusher
	cancel context.CancelFunc
	logger *slog.Logger
}

func New(out Pusher, cancel context.CancelFunc, logger *slog.Logger) *Menu {
	return &Menu{out: out, cancel: cancel, logger: logger}
}

// Run blocks on the tray's event loop; call it from the main goroutine.
// onReady runs once the icon is installed.
func (m *Menu) Run(onReady func()) {
	systray.Run(func() {
		m.install()
		if onReady != nil {
			onReady()
		}
	}, func() {
		m.logger.Debug("tray exited")
		m.cancel()
	})
}

// Quit tears down the tray, which makes Run return.
func (m *Menu) Quit() {
	systray.Quit()
}

func (m *Menu) install() {
	if icon := Icon(); icon != nil {
		systray.SetIcon(icon)
	}
	systray.SetTitle("Screen OCR Overlay")
	systray.SetTooltip("Screen OCR Overlay")

	for _, it := range items {
		mi := systray.AddMenuItem(it.title, it.tooltip)
		go func(mi *systray.MenuItem, key events.Key) {
			for range mi.ClickedCh {
				m.choose(key)
			}
		}(mi, it.key)
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")
	go func() {
		<-mQuit.ClickedCh
		m.quit()
	}()
}

func (m *Menu) choose(key events.Key) {
	m.logger.Debug("tray item chosen", "key", string(key))
	m.out.Push(events.KeyEvent{Key: key})
}

func (m *Menu) quit() {
	m.logger.Info("quit requested from tray")
	m.cancel()
	systray.Quit()
}
