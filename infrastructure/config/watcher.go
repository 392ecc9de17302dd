package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDuration = 100 * time.Millisecond

// Watcher reloads the YAML config file when it changes and applies the
// settings that can change at runtime. Only the log level is applied
// directly; other listeners subscribe through OnChange.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	level   zap.AtomicLevel
	logger  *zap.Logger

	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches the file cfg was loaded from.
func NewWatcher(cfg *Config, level zap.AtomicLevel, logger *zap.Logger) (*Watcher, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("configuration was not loaded from a file")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory so atomic saves (write + rename) are seen.
	if err := fw.Add(filepath.Dir(cfg.File)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:    cfg.File,
		watcher: fw,
		level:   level,
		logger:  logger,
		current: cfg,
		stopCh:  make(chan struct{}),
	}, nil
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Current returns the last successfully loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	next, err := w.Current().ReadFile(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	if err := next.Validate(); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}
	lvl, _ := next.Level()

	w.mu.Lock()
	old := w.current
	w.current = next
	handlers := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()

	if old.LogLevel != next.LogLevel {
		w.level.SetLevel(lvl)
		w.logger.Info("Log level changed",
			zap.String("old", old.LogLevel),
			zap.String("new", next.LogLevel),
		)
	}
	for _, fn := range handlers {
		fn(next)
	}
	w.logger.Info("Configuration reloaded", zap.String("path", w.path))
}
