package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// SettingsWatcher reloads the settings file when it is written and hands
// the result to a callback. The callback runs on a timer goroutine and
// should only enqueue work.
type SettingsWatcher struct {
	path     string
	logger   *slog.Logger
	onChange func(Settings)
	watcher  *fsnotify.Watcher
}

// WatchSettings starts watching path until ctx is done.
func WatchSettings(ctx context.Context, path string, logger *slog.Logger, onChange func(Settings)) (*SettingsWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	w := &SettingsWatcher{path: path, logger: logger, onChange: onChange, watcher: fw}
	go w.loop(ctx)
	return w, nil
}

func (w *SettingsWatcher) loop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watch error", "error", err)
		}
	}
}

func (w *SettingsWatcher) reload() {
	s, err := LoadSettings(w.path)
	if err != nil {
		w.logger.Warn("settings reload failed", "path", w.path, "error", err)
		return
	}
	w.logger.Info("settings reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(s)
	}
}

// Close stops watching.
func (w *SettingsWatcher) Close() error {
	return w.watcher.Close()
}
