package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/config"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/metrics"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/settings/kv"
	"github.com/dshills/italics/internal/settings/watch"
)

// bootstrapper handles component initialization with cleanup on failure.
type bootstrapper struct {
	app       *App
	opts      Options
	initOrder []string
}

func newBootstrapper(a *App, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       a,
		opts:      opts,
		initOrder: make([]string, 0, 5),
	}
}

// bootstrap initializes components in dependency order.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initLogger,
		b.initMetrics,
		b.initBackend,
		b.initStore,
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	b.app.logger.Debug("application initialized", zap.Strings("components", b.initOrder))
	return nil
}

func (b *bootstrapper) initLogger() error {
	if b.opts.Logger != nil {
		b.app.logger = b.opts.Logger
	} else {
		logger, err := logging.New(b.app.config.Logging)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		b.app.logger = logger
	}
	b.initOrder = append(b.initOrder, "logger")
	return nil
}

func (b *bootstrapper) initMetrics() error {
	if !b.app.config.Metrics.Enabled {
		return nil
	}
	reg := b.opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	b.app.registry = reg
	b.app.metrics = metrics.New(reg)
	b.initOrder = append(b.initOrder, "metrics")
	return nil
}

func (b *bootstrapper) initBackend() error {
	cfg := b.app.config.Settings
	if cfg.Backend != config.BackendMemory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return &InitError{Component: "settings backend", Err: err}
		}
	}

	switch cfg.Backend {
	case config.BackendMemory:
		b.app.backend = kv.NewMemory()
	case config.BackendTOML, config.BackendYAML:
		codec, err := kv.CodecByName(cfg.Backend)
		if err != nil {
			return &InitError{Component: "settings backend", Err: err}
		}
		b.app.backend = kv.NewFile(cfg.Path, codec)
	case config.BackendSQLite:
		db, err := kv.OpenSQLite(cfg.Path)
		if err != nil {
			return &InitError{Component: "settings backend", Err: err}
		}
		b.app.backend = db
		b.app.closeBackend = db.Close
	default:
		return &InitError{Component: "settings backend", Err: fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)}
	}

	b.initOrder = append(b.initOrder, "backend")
	return nil
}

func (b *bootstrapper) initStore() error {
	b.app.store = settings.Open(b.app.backend,
		settings.WithLogger(b.app.logger),
		settings.WithMetrics(b.app.metrics),
	)
	b.initOrder = append(b.initOrder, "store")
	return nil
}

// initWatcher watches file backends for edits made by other programs.
func (b *bootstrapper) initWatcher() error {
	cfg := b.app.config.Settings
	if !cfg.Watch || (cfg.Backend != config.BackendTOML && cfg.Backend != config.BackendYAML) {
		return nil
	}

	w, err := watch.New(cfg.Path, b.app.store.Reload,
		watch.WithDebounce(cfg.Debounce),
		watch.WithLogger(b.app.logger),
	)
	if err != nil {
		return &InitError{Component: "settings watcher", Err: err}
	}
	b.app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

// cleanup releases what was initialized before a failure.
func (b *bootstrapper) cleanup() {
	if b.app.watcher != nil {
		_ = b.app.watcher.Close()
	}
	if b.app.store != nil {
		b.app.store.Close()
	}
	if b.app.closeBackend != nil {
		_ = b.app.closeBackend()
	}
}
