package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is invoked with the freshly loaded configuration after
// the watched file changes and parses cleanly.
type ReloadFunc func(cfg *Config)

// Watcher reloads the config file on change. Parse or validation
// failures keep the previous configuration and log a warning.
type Watcher struct {
	path    string
	logger  *slog.Logger
	onLoad  ReloadFunc
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	current *Config
}

// NewWatcher creates a watcher for path. The initial config must have
// been loaded already; the watcher only handles subsequent changes.
func NewWatcher(path string, initial *Config, logger *slog.Logger, onLoad ReloadFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory rather than the file so atomic
	// rename-over-write (the common editor save) is observed.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:    path,
		logger:  logger,
		onLoad:  onLoad,
		watcher: fw,
		current: initial,
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("config watch error", "error", err)
			}
		}
	}
}

// reload re-reads the config file and publishes it on success.
func (w *Watcher) reload(ctx context.Context) {
	cfg, err := Load(w.path)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("config reload failed, keeping previous", "path", w.path, "error", err)
		}
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.InfoContext(ctx, "config reloaded", "path", w.path)
	}
	if w.onLoad != nil {
		w.onLoad(cfg)
	}
}
