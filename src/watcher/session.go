package watcher

import (
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/render"
)

// Session is the worker-owned option set. Key and settings events change it
// between passes; the render loop only ever sees the Flags copied out of it.
type Session struct {
	Debug         bool
	Translate     bool
	CanTranslate  bool // a translator backend is configured
	PartsOfSpeech bool
	Fullscreen    bool
	NoWatch       bool
	Furigana      string
	Settings      config.Settings
}

func SessionFromConfig(cfg *config.Config) Session {
	return Session{
		Debug:         cfg.Debug,
		Translate:     cfg.Translate,
		CanTranslate:  cfg.Translator != config.TranslatorNone,
		PartsOfSpeech: cfg.PartsOfSpeech,
		Fullscreen:    cfg.Fullscreen,
		NoWatch:       cfg.NoWatch,
		Furigana:      cfg.Furigana,
		Settings:      cfg.Settings,
	}
}

func (s Session) flags() render.Flags {
	return render.Flags{
		Debug:          s.Debug,
		PartsOfSpeech:  s.PartsOfSpeech,
		Translate:      s.Translate,
		Fullscreen:     s.Fullscreen,
		FuriganaSize:   s.Settings.FuriganaSize,
		SubtitleSize:   s.Settings.SubtitleSize,
		SubtitleMargin: s.Settings.SubtitleMargin,
	}
}

func (s Session) options() pipeline.Options {
	return pipeline.Options{Translate: s.Translate, Furigana: s.Furigana, Debug: s.Debug}
}
