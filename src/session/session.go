// Package session persists the last primary selection between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"screen-ocr-overlay/src/region"
)

const schemaURL = "selection.schema.json"

const selectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["x", "y", "w", "h"],
  "properties": {
    "x": {"type": "integer"},
    "y": {"type": "integer"},
    "w": {"type": "integer", "minimum": 1},
    "h": {"type": "integer", "minimum": 1},
    "screenOffsetX": {"type": "integer"},
    "screenOffsetY": {"type": "integer"},
    "clientOffsetX": {"type": "integer"},
    "clientOffsetY": {"type": "integer"}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(selectionSchema)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

type record struct {
	X             int `json:"x"`
	Y             int `json:"y"`
	W             int `json:"w"`
	H             int `json:"h"`
	ScreenOffsetX int `json:"screenOffsetX"`
	ScreenOffsetY int `json:"screenOffsetY"`
	ClientOffsetX int `json:"clientOffsetX"`
	ClientOffsetY int `json:"clientOffsetY"`
}

// Store reads and writes the selection file.
type Store struct {
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load returns the stored selection. A missing, unreadable or malformed
// file means there is none.
func (s *Store) Load() (region.Box, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read saved selection", "path", s.path, "error", err)
		}
		return region.Box{}, false
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		s.logger.Warn("saved selection is not JSON", "path", s.path, "error", err)
		return region.Box{}, false
	}
	sch, err := schema()
	if err != nil {
		s.logger.Error("selection schema failed to compile", "error", err)
		return region.Box{}, false
	}
	if err := sch.Validate(instance); err != nil {
		s.logger.Warn("saved selection failed validation", "path", s.path, "error", err)
		return region.Box{}, false
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return region.Box{}, false
	}
	box := region.New(r.X, r.Y, r.W, r.H, region.Context{
		ScreenX: r.ScreenOffsetX,
		ScreenY: r.ScreenOffsetY,
		ClientX: r.ClientOffsetX,
		ClientY: r.ClientOffsetY,
	})
	s.logger.Debug("restored selection", "box", box.String())
	return box, true
}

// Save overwrites the file with box.
func (s *Store) Save(box region.Box) error {
	if box.Empty() {
		return fmt.Errorf("refusing to save empty selection %s", box)
	}
	ctx := box.Context()
	data, err := json.MarshalIndent(record{
		X:             box.Left(),
		Y:             box.Top(),
		W:             box.Width(),
		H:             box.Height(),
		ScreenOffsetX: ctx.ScreenX,
		ScreenOffsetY: ctx.ScreenY,
		ClientOffsetX: ctx.ClientX,
		ClientOffsetY: ctx.ClientY,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create selection dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	s.logger.Debug("saved selection", "path", s.path, "box", box.String())
	return nil
}
