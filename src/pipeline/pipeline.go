// Package pipeline runs recognition, tokenization and translation over a
// captured image and packages the output for rendering.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/ocr"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/tokenizer"
	"screen-ocr-overlay/src/translate"
)

// Furigana is a reading placed above a token, in the recognized image's
// local coordinates: X is the token's horizontal centre, Y the top of its
// first character.
type Furigana struct {
	Reading string
	X       int
	Y       int
}

// Result is immutable once returned.
type Result struct {
	Original    string
	Translation string
	Lines       [][]ocr.Char
	Tokens      []tokenizer.Token
	Furigana    []Furigana
	Blocks      []ocr.Block
}

// Options are the per-pass switches taken from the session.
type Options struct {
	Translate bool
	Furigana  string
	Debug     bool
}

// VocabularySink records dictionary forms seen in a pass.
type VocabularySink interface {
	SaveVocabulary(ctx context.Context, words []string) error
}

type Pipeline struct {
	recognizer ocr.Recognizer
	tokenizer  tokenizer.Tokenizer
	translator translate.Translator
	vocabulary VocabularySink
	logger     *slog.Logger
}

// New builds a pipeline. translator and vocabulary may be nil.
func New(rec ocr.Recognizer, tok tokenizer.Tokenizer, tr translate.Translator, vocab VocabularySink, logger *slog.Logger) *Pipeline {
	if tr == nil {
		tr = translate.Nop{}
	}
	return &Pipeline{recognizer: rec, tokenizer: tok, translator: tr, vocabulary: vocab, logger: logger}
}

func (p *Pipeline) analyze(ctx context.Context, imagePath string, rc region.Context, level string) (*Result, error) {
	raw, err := p.recognizer.Recognize(ctx, imagePath, rc)
	if err != nil {
		return nil, err
	}
	text := raw.Text()
	tokens := p.tokenizer.Tokenize(text, raw.Lines)
	return &Result{
		Original: text,
		Lines:    raw.Lines,
		Tokens:   tokens,
		Furigana: ComputeFurigana(tokens, level),
		Blocks:   raw.Blocks,
	}, nil
}

// Run is the full pass: recognition, tokenization, furigana and, when
// enabled and there is text, translation. Vocabulary failures are logged
// and do not fail the pass.
func (p *Pipeline) Run(ctx context.Context, imagePath string, rc region.Context, opts Options) (*Result, error) {
	start := time.Now()
	res, err := p.analyze(ctx, imagePath, rc, opts.Furigana)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	if opts.Translate && res.Original != "" {
		tr, err := p.translator.Translate(ctx, res.Original)
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		res.Translation = tr
	}
	if p.vocabulary != nil {
		if err := p.vocabulary.SaveVocabulary(ctx, Vocabulary(res.Tokens)); err != nil {
			p.logger.Warn("failed to save vocabulary", "error", err)
		}
	}
	if opts.Debug {
		p.logDebug(res)
	}
	p.logger.Debug("pipeline pass complete",
		"chars", len([]rune(res.Original)),
		"tokens", len(res.Tokens),
		"translated", res.Translation != "",
		"duration", time.Since(start))
	return res, nil
}

// RunLight recognizes and tokenizes only.
func (p *Pipeline) RunLight(ctx context.Context, imagePath string, rc region.Context) (*Result, error) {
	res, err := p.analyze(ctx, imagePath, rc, config.FuriganaNone)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	return res, nil
}

func (p *Pipeline) logDebug(res *Result) {
	p.logger.Info("recognized", "text", res.Original)
	if res.Translation != "" {
		p.logger.Info("translated", "text", logutil.Truncate(res.Translation, 200))
	}
}

// ComputeFurigana places readings for tokens selected by level: every token
// with kanji for "all", proper nouns for "some", nothing otherwise.
func ComputeFurigana(tokens []tokenizer.Token, level string) []Furigana {
	var keep func(tokenizer.Token) bool
	switch level {
	case config.FuriganaAll:
		keep = tokenizer.Token.HasKanji
	case config.FuriganaSome:
		keep = tokenizer.Token.IsProperNoun
	default:
		return nil
	}
	var out []Furigana
	for _, t := range tokens {
		b := t.Box()
		if !keep(t) || t.Reading == "" || b.Empty() {
			continue
		}
		out = append(out, Furigana{Reading: t.Reading, X: b.Left() + b.Width()/2, Y: b.Top()})
	}
	return out
}

// Vocabulary returns the distinct dictionary forms of content tokens in
// first-seen order.
func Vocabulary(tokens []tokenizer.Token) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokens {
		if !t.IsContent() {
			continue
		}
		w := t.DictionaryForm()
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
