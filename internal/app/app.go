// Package app wires the italics components together. An App is built once
// at startup and owns the single settings store every decoration engine
// reads.
package app

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/config"
	"github.com/dshills/italics/internal/decorate"
	"github.com/dshills/italics/internal/format"
	"github.com/dshills/italics/internal/metrics"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/settings/watch"
	"github.com/dshills/italics/internal/view"
)

// App is the application context.
type App struct {
	mu sync.Mutex

	config   *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	backend      settings.Backend
	closeBackend func() error
	store        *settings.Store
	watcher      *watch.Watcher

	views  map[string]*view.View
	closed bool
}

// Options configures the application.
type Options struct {
	// Logger overrides the logger built from the logging config.
	Logger *zap.Logger

	// Registry receives metrics when metrics are enabled. A new registry is
	// created if nil.
	Registry *prometheus.Registry
}

// New builds the application from cfg. Settings are loaded before New
// returns.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	a := &App{
		config: cfg,
		views:  make(map[string]*view.View),
	}
	if err := newBootstrapper(a, opts).bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Store returns the settings store.
func (a *App) Store() *settings.Store {
	return a.store
}

// Metrics returns the metrics handle, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Registry returns the metrics registry, nil when metrics are disabled.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// OpenView creates a view over table and attaches a decoration engine to it.
func (a *App) OpenView(name string, table format.Table) (*view.View, *decorate.Engine, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, nil, ErrClosed
	}
	v := view.New(name)
	a.views[v.ID()] = v
	a.mu.Unlock()

	e := decorate.Attach(v, table, a.store,
		decorate.WithLogger(a.logger),
		decorate.WithMetrics(a.metrics),
	)
	a.logger.Debug("view opened", zap.String("view", v.ID()), zap.String("name", v.Name))
	return v, e, nil
}

// CloseView detaches the view's engine and forgets the view.
func (a *App) CloseView(v *view.View) error {
	a.mu.Lock()
	if _, ok := a.views[v.ID()]; !ok {
		a.mu.Unlock()
		return ErrViewNotFound
	}
	delete(a.views, v.ID())
	a.mu.Unlock()

	decorate.Detach(v)
	return nil
}

// Views returns the open views ordered by name.
func (a *App) Views() []*view.View {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*view.View, 0, len(a.views))
	for _, v := range a.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close detaches every engine and releases the watcher and backend.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	views := a.views
	a.views = nil
	a.mu.Unlock()

	for _, v := range views {
		decorate.Detach(v)
	}

	var firstErr error
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			firstErr = err
		}
	}
	a.store.Close()
	if a.closeBackend != nil {
		if err := a.closeBackend(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.logger.Sync()
	return firstErr
}
