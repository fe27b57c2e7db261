package runtimeinit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/dictionary"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/tokenizer"
	"screen-ocr-overlay/src/translate"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Logger overrides the configured logger (tests, CLI quiet mode).
	Logger *slog.Logger
	// SkipDictionary leaves the vocabulary database closed even when
	// configured.
	SkipDictionary bool
}

// Runtime is everything the overlay and the CLI share.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Recognizer ocr.Recognizer
	Tokenizer  tokenizer.Tokenizer
	Translator translate.Translator
	Dictionary dictionary.Lookup
	Pipeline   *pipeline.Pipeline

	db *dictionary.SQLite
}

// Close releases the dictionary database.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logutil.New(logutil.Options{
			Level:             cfg.LogLevel,
			EnableFileLogging: cfg.EnableFileLogging,
			Dir:               logDir(),
		})
	}

	rt := &Runtime{Config: cfg, Logger: logger, Dictionary: dictionary.Nop{}}

	switch cfg.Engine {
	case config.EngineGoogle:
		logger.Info("using Google Vision", "api_key", logutil.RedactKey(cfg.GoogleAPIKey))
		rt.Recognizer = ocr.NewGoogle(cfg.GoogleAPIKey, "", logger)
	default:
		logger.Info("using Tesseract", "lang", cfg.TesseractLang)
		rt.Recognizer = ocr.NewTesseract(cfg.TesseractLang, logger)
	}

	tok, err := tokenizer.NewKagome()
	if err != nil {
		return nil, fmt.Errorf("failed to build tokenizer: %w", err)
	}
	rt.Tokenizer = tok

	switch cfg.Translator {
	case config.TranslatorDeepL:
		logger.Info("using DeepL", "url", cfg.DeepLURL, "key", logutil.RedactKey(cfg.DeepLKey))
		rt.Translator = translate.NewDeepL(cfg.DeepLURL, cfg.DeepLKey, logger)
	case config.TranslatorOllama:
		o, err := translate.NewOllama(cfg.OllamaURL, cfg.OllamaModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build translator: %w", err)
		}
		logger.Info("using Ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		rt.Translator = o
	default:
		rt.Translator = translate.Nop{}
	}

	var vocab pipeline.VocabularySink
	if cfg.DictionaryPath != "" && !opts.SkipDictionary {
		db, err := dictionary.Open(cfg.DictionaryPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open dictionary: %w", err)
		}
		rt.db = db
		rt.Dictionary = db
		vocab = db
	}

	rt.Pipeline = pipeline.New(rt.Recognizer, rt.Tokenizer, rt.Translator, vocab, logger)
	return rt, nil
}

func logDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}
