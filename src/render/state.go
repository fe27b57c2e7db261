// Package render holds the immutable snapshot handed from the watcher to the
// render loop and the program that draws it.
package render

import (
	"slices"

	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
)

// Flags are the display switches and sizes in effect for one pass.
type Flags struct {
	Debug         bool
	PartsOfSpeech bool
	Translate     bool
	Fullscreen    bool

	FuriganaSize   int
	SubtitleSize   int
	SubtitleMargin int
}

// State is one frame's worth of overlay content. Fields are unexported and
// accessors return copies, so a State cannot change after it is built.
type State struct {
	flags         Flags
	primary       region.Box
	result        *pipeline.Result
	secondary     region.Box
	secondaryText []string
}

// NewState snapshots the primary pass. result may be nil for a frame that
// only carries secondary content.
func NewState(flags Flags, primary region.Box, result *pipeline.Result) State {
	return State{flags: flags, primary: primary, result: result}
}

// WithSecondary returns a copy carrying lookup text for the secondary box.
func (s State) WithSecondary(box region.Box, lines []string) State {
	s.secondary = box
	s.secondaryText = slices.Clone(lines)
	return s
}

func (s State) Flags() Flags             { return s.flags }
func (s State) Primary() region.Box      { return s.primary }
func (s State) Result() *pipeline.Result { return s.result }
func (s State) Secondary() region.Box    { return s.secondary }
func (s State) SecondaryText() []string  { return slices.Clone(s.secondaryText) }
func (s State) HasSecondary() bool       { return len(s.secondaryText) > 0 }
