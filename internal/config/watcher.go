package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// LoggingSettings is the [logging] table of the settings file. Every key
// other than level and format is a module level override.
type LoggingSettings struct {
	Level   string
	Modules map[string]string
}

// LoadLoggingSettings reads the [logging] table of the settings file at path.
func LoadLoggingSettings(path string) (LoggingSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoggingSettings{}, err
	}

	var doc struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return LoggingSettings{}, fmt.Errorf("failed to parse TOML settings: %w", err)
	}

	settings := LoggingSettings{Modules: make(map[string]string)}
	for key, value := range doc.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			settings.Level = s
		case "format":
		default:
			settings.Modules[key] = s
		}
	}
	return settings, nil
}

// Watcher calls a handler with fresh logging settings whenever the
// settings file is written or replaced.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(LoggingSettings)
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for the settings file at path. A zero
// debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, onChange func(LoggingSettings), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start watches the directory holding the settings file, so that editors
// replacing the file are noticed as well.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fw
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("Settings watcher started", "path", w.path)
	go w.loop(fw, w.done)
	return nil
}

// Stop ends the watch. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	close(w.done)
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done <-chan struct{}) {
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-done:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			settings, err := LoadLoggingSettings(w.path)
			if err != nil {
				w.logger.Warn("Failed to reload settings", "error", err)
				continue
			}
			w.logger.Info("Settings changed, applying logging levels")
			w.onChange(settings)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Settings watcher error", "error", err)
		}
	}
}
