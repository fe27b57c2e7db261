package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LookupURLs are the search URL prefixes opened for the lookup keys. The
// search term is appended verbatim (after query escaping).
type LookupURLs struct {
	Jisho       string `toml:"jisho" yaml:"jisho" json:"jisho"`
	WikipediaJA string `toml:"wikipedia_ja" yaml:"wikipedia_ja" json:"wikipedia_ja"`
	WikipediaEN string `toml:"wikipedia_en" yaml:"wikipedia_en" json:"wikipedia_en"`
}

// Settings are display settings that may be edited while running.
type Settings struct {
	FuriganaSize   int        `toml:"furigana_size" yaml:"furigana_size" json:"furigana_size"`
	SubtitleSize   int        `toml:"subtitle_size" yaml:"subtitle_size" json:"subtitle_size"`
	SubtitleMargin int        `toml:"subtitle_margin" yaml:"subtitle_margin" json:"subtitle_margin"`
	Lookup         LookupURLs `toml:"lookup" yaml:"lookup" json:"lookup"`
}

const (
	minFontSize = 6
	maxFontSize = 96
)

func DefaultSettings() Settings {
	return Settings{
		FuriganaSize:   12,
		SubtitleSize:   24,
		SubtitleMargin: 10,
		Lookup: LookupURLs{
			Jisho:       "https://jisho.org/search/",
			WikipediaJA: "https://ja.wikipedia.org/wiki/",
			WikipediaEN: "https://en.wikipedia.org/w/index.php?search=",
		},
	}
}

// Validate clamps values to usable ranges and restores missing URLs.
func (s *Settings) Validate() {
	d := DefaultSettings()
	s.FuriganaSize = ClampFontSize(s.FuriganaSize, d.FuriganaSize)
	s.SubtitleSize = ClampFontSize(s.SubtitleSize, d.SubtitleSize)
	if s.SubtitleMargin < 0 {
		s.SubtitleMargin = d.SubtitleMargin
	}
	if s.Lookup.Jisho == "" {
		s.Lookup.Jisho = d.Lookup.Jisho
	}
	if s.Lookup.WikipediaJA == "" {
		s.Lookup.WikipediaJA = d.Lookup.WikipediaJA
	}
	if s.Lookup.WikipediaEN == "" {
		s.Lookup.WikipediaEN = d.Lookup.WikipediaEN
	}
}

// ClampFontSize keeps size within the supported range; zero means def.
func ClampFontSize(size, def int) int {
	switch {
	case size == 0:
		return def
	case size < minFontSize:
		return minFontSize
	case size > maxFontSize:
		return maxFontSize
	default:
		return size
	}
}

// LoadSettings reads a settings file, choosing the decoder by extension.
// A missing file yields defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return DefaultSettings(), fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return DefaultSettings(), fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return DefaultSettings(), fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return DefaultSettings(), fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}

	s.Validate()
	return s, nil
}
