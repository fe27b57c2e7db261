package events

import (
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/region"
)

// Event is the base interface for everything the input side hands to the
// worker.
type Event interface {
	Type() string
}

// Event type constants for logging and switch-free identification.
const (
	TypeKey      = "Key"
	TypeRegion   = "Region"
	TypeSettings = "Settings"
)

// Key names a released key, as reported by the input hook or the tray.
type Key string

const (
	KeyClear         Key = "c"
	KeyDebug         Key = "d"
	KeyTranslate     Key = "t"
	KeyPartsOfSpeech Key = "p"
	KeyFuriganaUp    Key = "="
	KeyFuriganaDown  Key = "-"
	KeyJisho         Key = "j"
	KeyWikipediaJA   Key = "w"
	KeyWikipediaEN   Key = "e"
	KeyCopy          Key = "k"
)

// Role tells the worker what a selected region is for.
type Role int

const (
	// Primary drives full recognition, translation and watching.
	Primary Role = iota
	// Secondary drives a one-shot lookup pass.
	Secondary
)

func (r Role) String() string {
	if r == Secondary {
		return "secondary"
	}
	return "primary"
}

// KeyEvent - a key was released.
type KeyEvent struct {
	Key Key
}

func (e KeyEvent) Type() string { return TypeKey }

// RegionEvent - the user finished selecting a region.
type RegionEvent struct {
	Box  region.Box
	Role Role
}

func (e RegionEvent) Type() string { return TypeRegion }

// SettingsEvent - the settings file was reloaded.
type SettingsEvent struct {
	Settings config.Settings
}

func (e SettingsEvent) Type() string { return TypeSettings }
