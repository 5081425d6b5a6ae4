package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ChangeFunc is called by a [Watcher] after a reload that changed at least
// one value.
type ChangeFunc func(old, new *Config, changes Changes)

// Watcher polls a config file and reports validated changes. Invalid
// revisions are logged and skipped; the last valid config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange ChangeFunc
	log      *slog.Logger

	mu       sync.Mutex
	current  *Config
	modTime  time.Time
	sum      [sha256.Size]byte
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher loads path and starts polling it in the background. The
// initial load must succeed.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		log:      slog.Default(),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, sum, modTime, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current, w.sum, w.modTime = cfg, sum, modTime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling and waits for an in-flight check to finish. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	<-w.stopped
}

func (w *Watcher) poll() {
	defer close(w.stopped)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.modTime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, sum, modTime, err := w.read()
	if err != nil {
		w.log.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if sum == w.sum {
		w.modTime = modTime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.sum, w.modTime = cfg, sum, modTime
	w.mu.Unlock()

	changes := Diff(old, cfg)
	if changes.Empty() {
		return
	}
	w.log.Info("config watcher: reloaded",
		"path", w.path,
		"settings", len(changes.Settings),
		"restart_required", changes.RestartRequired,
	)
	if w.onChange != nil {
		w.onChange(old, cfg, changes)
	}
}

// read loads and validates the file and returns it with its SHA-256 sum and
// modification time.
func (w *Watcher) read() (*Config, [sha256.Size]byte, time.Time, error) {
	var sum [sha256.Size]byte

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, sum, time.Time{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, sum, time.Time{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, sum, time.Time{}, err
	}
	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
