// Package hotkey turns global keyboard and mouse input into overlay events.
package hotkey

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"

	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/screenshot"
)

// Pusher receives the events the listener produces.
type Pusher interface {
	Push(e events.Event)
}

// Keys held down to drag out a selection.
const (
	SelectPrimaryKey   = "r"
	SelectSecondaryKey = "s"
)

var overlayKeys = []events.Key{
	events.KeyClear,
	events.KeyDebug,
	events.KeyTranslate,
	events.KeyPartsOfSpeech,
	events.KeyFuriganaUp,
	events.KeyFuriganaDown,
	events.KeyJisho,
	events.KeyWikipediaJA,
	events.KeyWikipediaEN,
	events.KeyCopy,
}

// Listener tracks the pointer and turns key presses into events. A held
// selection key anchors a corner at the pointer; releasing it emits the
// region spanned by the anchor and the current pointer.
type Listener struct {
	out    Pusher
	bounds image.Rectangle
	logger *slog.Logger

	keys    map[uint16]events.Key
	selects map[uint16]events.Role
	// modifier holds one rawcode group per named modifier key; every group
	// needs one of its codes down.
	modifier [][]uint16

	mu          sync.Mutex
	modDown     map[uint16]bool
	anchors     map[events.Role]image.Point
	pos         atomic.Int64
	hasPosition atomic.Bool
}

// NewListener builds a listener for an overlay covering bounds. modifier is
// a key name such as "alt" or "ctrl+shift"; "none" or "" disables the
// requirement.
func NewListener(out Pusher, bounds image.Rectangle, modifier string, logger *slog.Logger) (*Listener, error) {
	l := &Listener{
		out:     out,
		bounds:  bounds,
		logger:  logger,
		keys:    map[uint16]events.Key{},
		selects: map[uint16]events.Role{},
		modDown: map[uint16]bool{},
		anchors: map[events.Role]image.Point{},
	}
	for _, k := range overlayKeys {
		for _, code := range keyNameToRawcodes(string(k)) {
			l.keys[code] = k
		}
	}
	for name, role := range map[string]events.Role{SelectPrimaryKey: events.Primary, SelectSecondaryKey: events.Secondary} {
		for _, code := range keyNameToRawcodes(name) {
			l.selects[code] = role
		}
	}

	modifier = strings.TrimSpace(modifier)
	if modifier != "" && !strings.EqualFold(modifier, "none") {
		for _, name := range parseHotkey(modifier) {
			codes := keyNameToRawcodes(name)
			if len(codes) == 0 {
				return nil, fmt.Errorf("unknown modifier key %q in %q", name, modifier)
			}
			l.modifier = append(l.modifier, codes)
		}
	}
	return l, nil
}

// Run feeds hook events to Handle until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("gohook.Start() returned nil channel")
	}
	defer gohook.End()
	l.logger.Info("input hook started", "modifier_codes", l.modifier)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-evChan:
			if !ok {
				l.logger.Warn("input hook channel closed")
				return nil
			}
			l.Handle(ev)
		}
	}
}

// Position implements the pointer source for hover tracking.
func (l *Listener) Position() (image.Point, bool) {
	if !l.hasPosition.Load() {
		return image.Point{}, false
	}
	v := l.pos.Load()
	return image.Pt(int(int32(v>>32)), int(int32(v))), true
}

func (l *Listener) setPosition(x, y int) {
	l.pos.Store(int64(x)<<32 | int64(uint32(int32(y))))
	l.hasPosition.Store(true)
}

// Handle processes a single hook event.
func (l *Listener) Handle(ev gohook.Event) {
	switch ev.Kind {
	case gohook.MouseMove, gohook.MouseDrag, gohook.MouseDown, gohook.MouseUp:
		l.setPosition(int(ev.X), int(ev.Y))
	case gohook.KeyDown, gohook.KeyHold:
		l.keyDown(ev.Rawcode)
	case gohook.KeyUp:
		l.keyUp(ev.Rawcode)
	}
}

func (l *Listener) keyDown(code uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isModifier(code) {
		l.modDown[code] = true
		return
	}
	role, ok := l.selects[code]
	if !ok || !l.modifierHeld() {
		return
	}
	if _, held := l.anchors[role]; held {
		// auto-repeat
		return
	}
	p, ok := l.Position()
	if !ok {
		l.logger.Debug("selection key pressed before pointer position is known", "role", role.String())
		return
	}
	l.anchors[role] = p
	l.logger.Debug("selection started", "role", role.String(), "x", p.X, "y", p.Y)
}

func (l *Listener) keyUp(code uint16) {
	l.mu.Lock()
	if l.isModifier(code) {
		delete(l.modDown, code)
		l.mu.Unlock()
		return
	}
	if role, ok := l.selects[code]; ok {
		anchor, held := l.anchors[role]
		delete(l.anchors, role)
		l.mu.Unlock()
		if held {
			l.finishSelection(role, anchor)
		}
		return
	}
	key, ok := l.keys[code]
	active := l.modifierHeld()
	l.mu.Unlock()

	if ok && active {
		l.logger.Debug("key released", "key", string(key))
		l.out.Push(events.KeyEvent{Key: key})
	}
}

func (l *Listener) finishSelection(role events.Role, anchor image.Point) {
	p, _ := l.Position()
	box := region.FromPoints(anchor.X, anchor.Y, p.X, p.Y, screenshot.ScreenContext(l.bounds))
	if box.Empty() {
		l.logger.Debug("ignoring empty selection", "role", role.String())
		return
	}
	l.logger.Info("region selected", "role", role.String(), "box", box.String())
	l.out.Push(events.RegionEvent{Box: box, Role: role})
}

func (l *Listener) isModifier(code uint16) bool {
	for _, group := range l.modifier {
		if slices.Contains(group, code) {
			return true
		}
	}
	return false
}

// modifierHeld reports whether every configured modifier is down, either
// side counting. Callers hold l.mu.
func (l *Listener) modifierHeld() bool {
	for _, group := range l.modifier {
		down := false
		for _, c := range group {
			if l.modDown[c] {
				down = true
				break
			}
		}
		if !down {
			return false
		}
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
// Modifiers return both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN

	case "=", "plus":
		return []uint16{187} // VK_OEM_PLUS
	case "-", "minus":
		return []uint16{189} // VK_OEM_MINUS

	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			// VK codes 0x41-0x5A
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			// VK codes 0x30-0x39
			return []uint16{uint16(c-'0') + 48}
		}
	}

	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)} // VK_F1 is 112
	}
	return nil
}
