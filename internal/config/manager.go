package config

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blueberrycongee/memgate/internal/metrics"
	"github.com/blueberrycongee/memgate/internal/observability"
)

// Debounce window for editors that write config files in several bursts.
const reloadDebounce = 500 * time.Millisecond

// Manager owns the active configuration and hot-reloads it on file change.
// Readers always see a complete config: swaps are atomic, and a reload that
// fails to parse or validate is rejected, keeping the current config live.
type Manager struct {
	config  atomic.Pointer[Config]
	path    string
	watcher *fsnotify.Watcher
	logger  *observability.Logger

	mu       sync.Mutex
	onChange []func(*Config)
}

// NewManager loads the configuration at path and returns a manager for it.
func NewManager(path string, logger *observability.Logger) (*Manager, error) {
	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LoggerConfig{}, nil)
	}

	m := &Manager{
		path:   path,
		logger: logger,
	}
	m.config.Store(cfg)

	return m, nil
}

// Get returns the current configuration. Safe for concurrent use.
func (m *Manager) Get() *Config {
	return m.config.Load()
}

// OnChange registers a callback invoked after each applied reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Watch starts watching the configuration file until ctx is canceled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return err
	}

	go m.watch(ctx)
	return nil
}

func (m *Manager) watch(ctx context.Context) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			_ = m.watcher.Close()
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, m.reload)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("config watcher error", "error", err)
		}
	}
}

// reload parses and validates the file, then swaps it in. Error text is
// logged redacted since config files carry upstream credentials.
func (m *Manager) reload() {
	cfg, err := LoadFromFile(m.path)
	if err != nil {
		metrics.ConfigReloads.WithLabelValues("rejected").Inc()
		m.logger.RedactedError("config reload rejected, keeping current",
			"path", m.path,
			"error", err,
		)
		return
	}

	m.config.Store(cfg)
	metrics.ConfigReloads.WithLabelValues("applied").Inc()
	m.logger.Info("configuration reloaded", "path", m.path)

	for _, fn := range m.callbacks() {
		fn(cfg)
	}
}

func (m *Manager) callbacks() []func(*Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]func(*Config){}, m.onChange...)
}

// Close stops the configuration watcher.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
