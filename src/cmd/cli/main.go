package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/webp"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/pipeline"
	"screen-ocr-overlay/src/region"
	"screen-ocr-overlay/src/render"
	"screen-ocr-overlay/src/runtimeinit"
	"screen-ocr-overlay/src/screenshot"
	"screen-ocr-overlay/src/worker"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	files         []string
	jobs          int
	jsonOutput    bool
	verbose       bool
	translate     bool
	furigana      string
	renderPath    string
	debug         bool
	partsOfSpeech bool
	envPath       string
	settingsPath  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-overlay-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-overlay-cli",
		Short:         "Recognize, tokenize and optionally translate Japanese text in an image",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&opts.files, "file", nil, "Path to a PNG, JPEG or WebP image (use '-' for stdin); repeat for a batch")
	cmd.Flags().IntVar(&opts.jobs, "jobs", 0, "Images recognized in parallel (default NumCPU)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "Translate the recognized text")
	cmd.Flags().StringVar(&opts.furigana, "furigana", config.FuriganaNone, "Furigana level: none, some or all")
	cmd.Flags().StringVar(&opts.renderPath, "render", "", "Write the overlay drawn over the input to this PNG")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Draw recognition boxes in the rendered image")
	cmd.Flags().BoolVar(&opts.partsOfSpeech, "parts-of-speech", false, "Highlight names and places in the rendered image")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file (highest precedence)")
	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to a settings file (toml, yaml or json)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logutil.Discard()
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	switch opts.furigana {
	case config.FuriganaNone, config.FuriganaSome, config.FuriganaAll:
	default:
		return fmt.Errorf("unknown furigana level %q", opts.furigana)
	}

	if len(opts.files) == 0 {
		return fmt.Errorf("no input files")
	}
	if len(opts.files) > 1 {
		if opts.renderPath != "" {
			return fmt.Errorf("--render takes a single --file")
		}
		for _, f := range opts.files {
			if f == "-" {
				return fmt.Errorf("stdin cannot be part of a batch")
			}
		}
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvPathOverride:      opts.envPath,
			SettingsPathOverride: opts.settingsPath,
		},
		Logger:         logger,
		SkipDictionary: true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	if opts.translate && rt.Config.Translator == config.TranslatorNone {
		return fmt.Errorf("--translate needs TRANSLATOR set to deepl or ollama")
	}

	dir, err := os.MkdirTemp("", "ocr-overlay-cli-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pipeOpts := pipeline.Options{Translate: opts.translate, Furigana: opts.furigana, Debug: opts.verbose}
	outcomes := make([]outcome, len(opts.files))
	pool := worker.New(opts.jobs, logger)
	for i, file := range opts.files {
		err := pool.Submit(ctx, func(ctx context.Context) {
			outcomes[i] = process(ctx, rt.Pipeline, file, stdin, filepath.Join(dir, fmt.Sprintf("input-%d.png", i)), pipeOpts, logger)
		})
		if err != nil {
			pool.Close()
			return err
		}
	}
	pool.Close()

	if len(outcomes) == 1 {
		o := outcomes[0]
		if o.err != nil {
			return o.err
		}
		if opts.renderPath != "" {
			flags := render.Flags{
				Debug:          opts.debug,
				PartsOfSpeech:  opts.partsOfSpeech,
				Translate:      opts.translate,
				FuriganaSize:   rt.Config.Settings.FuriganaSize,
				SubtitleSize:   rt.Config.Settings.SubtitleSize,
				SubtitleMargin: rt.Config.Settings.SubtitleMargin,
			}
			if err := renderOver(o.img, o.res, flags, rt.Config.OverlayFont, opts.renderPath, logger); err != nil {
				return err
			}
		}
		return outputResult(stdout, o.res, o.source, o.elapsed, opts.jsonOutput)
	}
	return outputBatch(stdout, outcomes, opts.jsonOutput)
}

// outcome is one image's pass.
type outcome struct {
	source  string
	img     image.Image
	res     *pipeline.Result
	elapsed time.Duration
	err     error
}

type analyzer interface {
	Run(ctx context.Context, imagePath string, rc region.Context, opts pipeline.Options) (*pipeline.Result, error)
}

func process(ctx context.Context, p analyzer, source string, stdin io.Reader, scratch string, opts pipeline.Options, logger *slog.Logger) outcome {
	o := outcome{source: source}
	img, err := readImage(source, stdin)
	if err != nil {
		o.err = err
		return o
	}
	logger.Debug("decoded input", "source", source, "size", img.Bounds().Size())
	if err := screenshot.Save(img, scratch); err != nil {
		o.err = err
		return o
	}
	start := time.Now()
	res, err := p.Run(ctx, scratch, region.Context{}, opts)
	o.elapsed = time.Since(start)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", source, err)
		return o
	}
	o.img, o.res = img, res
	return o
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "json", "verbose", "translate", "furigana", "render", "debug", "parts-of-speech", "env", "settings", "jobs"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func readImage(filePath string, stdin io.Reader) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("input is not a supported image: %w", err)
	}
	return img, nil
}

// renderOver draws the overlay for res on a transparent frame the size of
// img and composites it over img.
func renderOver(img image.Image, res *pipeline.Result, flags render.Flags, fontPath, out string, logger *slog.Logger) error {
	size := img.Bounds().Size()
	surface := overlay.NewImageSurface(size, "", logger)
	defer surface.Close()
	if err := surface.LoadFont(fontPath); err != nil {
		logger.Debug("rendering with the ASCII bitmap font", "error", err)
	}
	surface.Clear()
	render.Draw(surface, render.NewState(flags, region.New(0, 0, size.X, size.Y, region.Context{}), res))
	composed := imaging.Overlay(img, surface.Frame(), image.Point{}, 1.0)
	return screenshot.Save(composed, out)
}

type tokenJSON struct {
	Surface  string   `json:"surface"`
	Reading  string   `json:"reading,omitempty"`
	BaseForm string   `json:"base_form,omitempty"`
	POS      []string `json:"pos,omitempty"`
	Line     int      `json:"line"`
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
}

type furiganaJSON struct {
	Reading string `json:"reading"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type OCRResult struct {
	Original    string         `json:"original"`
	Translation string         `json:"translation,omitempty"`
	Lines       []string       `json:"lines"`
	Tokens      []tokenJSON    `json:"tokens"`
	Furigana    []furiganaJSON `json:"furigana,omitempty"`
	Source      string         `json:"source"`
	Duration    float64        `json:"duration_seconds"`
}

func toJSON(res *pipeline.Result, source string, elapsed time.Duration) OCRResult {
	out := OCRResult{
		Original:    res.Original,
		Translation: res.Translation,
		Lines:       []string{},
		Tokens:      []tokenJSON{},
		Source:      source,
		Duration:    elapsed.Seconds(),
	}
	for _, line := range res.Lines {
		var sb strings.Builder
		for _, c := range line {
			sb.WriteString(c.Text)
		}
		out.Lines = append(out.Lines, sb.String())
	}
	for _, t := range res.Tokens {
		b := t.Box()
		out.Tokens = append(out.Tokens, tokenJSON{
			Surface:  t.Surface,
			Reading:  t.Reading,
			BaseForm: t.BaseForm,
			POS:      t.POS,
			Line:     t.Line,
			X:        b.Left(),
			Y:        b.Top(),
			Width:    b.Width(),
			Height:   b.Height(),
		})
	}
	for _, f := range res.Furigana {
		out.Furigana = append(out.Furigana, furiganaJSON{Reading: f.Reading, X: f.X, Y: f.Y})
	}
	return out
}

func outputResult(w io.Writer, res *pipeline.Result, source string, elapsed time.Duration, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(toJSON(res, source, elapsed)); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	fmt.Fprintln(w, res.Original)
	if res.Translation != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Translation)
	}
	return nil
}

type batchEntry struct {
	*OCRResult
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

// outputBatch reports every image; it fails if any image failed.
func outputBatch(w io.Writer, outcomes []outcome, jsonOutput bool) error {
	failed := 0
	entries := make([]batchEntry, 0, len(outcomes))
	for _, o := range outcomes {
		e := batchEntry{Source: o.source}
		if o.err != nil {
			failed++
			e.Error = o.err.Error()
		} else {
			r := toJSON(o.res, o.source, o.elapsed)
			e.OCRResult = &r
		}
		entries = append(entries, e)
	}

	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	} else {
		for _, o := range outcomes {
			fmt.Fprintf(w, "== %s ==\n", o.source)
			if o.err != nil {
				fmt.Fprintf(w, "error: %v\n", o.err)
				continue
			}
			if err := outputResult(w, o.res, o.source, o.elapsed, false); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(outcomes))
	}
	return nil
}
