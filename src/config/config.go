package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvPathEnvVar = "SCREEN_OCR_OVERLAY"

	EngineGoogle    = "google"
	EngineTesseract = "tesseract"

	TranslatorDeepL  = "deepl"
	TranslatorOllama = "ollama"
	TranslatorNone   = "none"

	FuriganaNone = "none"
	FuriganaSome = "some"
	FuriganaAll  = "all"

	DefaultDeepLURL    = "https://api-free.deepl.com/v2/translate"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5:7b"

	DefaultHotkeyModifier = "alt"
)

type LoadOptions struct {
	EnvPathOverride      string
	SettingsPathOverride string
}

// Config is the process-level configuration. The display flags seed the
// worker's session options; after startup only the worker changes them.
type Config struct {
	Engine        string
	GoogleAPIKey  string
	TesseractLang string

	Translator  string
	DeepLURL    string
	DeepLKey    string
	OllamaURL   string
	OllamaModel string

	Debug         bool
	Translate     bool
	PartsOfSpeech bool
	Fullscreen    bool
	NoWatch       bool
	Furigana      string

	// HotkeyModifier must be held for overlay keys to count; "none"
	// listens to bare keys.
	HotkeyModifier string

	// OverlayFont is a TrueType/OpenType file with Japanese glyphs; empty
	// searches the usual system locations.
	OverlayFont string

	NotesFolder       string
	DictionaryPath    string
	SelectionPath     string
	LogLevel          string
	EnableFileLogging bool

	SettingsPath string
	Settings     Settings
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit override
	// 2) .env in the executable directory
	// 3) SCREEN_OCR_OVERLAY env var as a path to a dotenv file
	envPath := strings.TrimSpace(opts.EnvPathOverride)
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	settingsPath := strings.TrimSpace(opts.SettingsPathOverride)
	if settingsPath == "" {
		settingsPath = os.Getenv("SETTINGS_FILE")
	}
	settings := DefaultSettings()
	if settingsPath != "" {
		s, err := LoadSettings(settingsPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		settings = s
	}

	cfg := &Config{
		Engine:            resolveChoice(os.Getenv("ENGINE"), EngineTesseract, EngineGoogle, EngineTesseract),
		GoogleAPIKey:      os.Getenv("GOOGLE_VISION_API_KEY"),
		TesseractLang:     getEnvWithDefault("TESSERACT_LANG", "jpn"),
		Translator:        resolveChoice(os.Getenv("TRANSLATOR"), TranslatorNone, TranslatorDeepL, TranslatorOllama, TranslatorNone),
		DeepLURL:          getEnvWithDefault("DEEPL_URL", DefaultDeepLURL),
		DeepLKey:          os.Getenv("DEEPL_KEY"),
		OllamaURL:         getEnvWithDefault("OLLAMA_URL", DefaultOllamaURL),
		OllamaModel:       getEnvWithDefault("OLLAMA_MODEL", DefaultOllamaModel),
		Debug:             envBool("DEBUG"),
		Translate:         envBool("TRANSLATE"),
		PartsOfSpeech:     envBool("PARTS_OF_SPEECH"),
		Fullscreen:        envBool("FULLSCREEN"),
		NoWatch:           envBool("NO_WATCH"),
		Furigana:          resolveChoice(os.Getenv("FURIGANA"), FuriganaNone, FuriganaNone, FuriganaSome, FuriganaAll),
		HotkeyModifier:    strings.ToLower(getEnvWithDefault("HOTKEY_MODIFIER", DefaultHotkeyModifier)),
		OverlayFont:       expandHome(os.Getenv("OVERLAY_FONT")),
		NotesFolder:       expandHome(os.Getenv("NOTES_FOLDER")),
		DictionaryPath:    expandHome(os.Getenv("DICTIONARY_DB")),
		SelectionPath:     expandHome(getEnvWithDefault("SELECTION_FILE", DefaultSelectionPath())),
		LogLevel:          resolveChoice(os.Getenv("LOG_LEVEL"), "info", "info", "debug"),
		EnableFileLogging: envBool("ENABLE_FILE_LOGGING"),
		SettingsPath:      settingsPath,
		Settings:          settings,
	}

	return cfg, nil
}

// Validate checks that the selected engines have what they need.
func (c *Config) Validate() error {
	if c.Engine == EngineGoogle && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_VISION_API_KEY is required for the google engine")
	}
	if c.Translator == TranslatorDeepL && c.DeepLKey == "" {
		return fmt.Errorf("DEEPL_KEY is required for the deepl translator")
	}
	if c.Translator == TranslatorNone && c.Translate {
		return fmt.Errorf("TRANSLATE is set but TRANSLATOR is none")
	}
	return nil
}

// DefaultSelectionPath is the per-user location of the last selection.
func DefaultSelectionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "screen-ocr-overlay", "selection.json")
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// resolveChoice returns value lower-cased if it is one of allowed, else def.
func resolveChoice(value, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return a
		}
	}
	return def
}

func expandHome(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
