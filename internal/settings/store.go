// Package settings owns the authoritative set of classification names to
// italicize and mediates its persistence.
//
// A Store never returns persistence errors to callers. Failures are
// reported with zap's DPanic (a panic in development mode, a log entry in
// production) and the operation degrades: Load falls back to the empty set,
// Save leaves subscribers un-notified.
package settings

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/italics/internal/classification"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/metrics"
	"github.com/dshills/italics/internal/settings/notify"
)

// Store holds the current classification set.
//
// Reads (Current) are safe from any goroutine. Update, Save and Reload are
// expected on one configuration goroutine but are serialized regardless.
type Store struct {
	backend  Backend
	logger   *zap.Logger
	metrics  *metrics.Metrics
	notifier *notify.Notifier

	// writeMu serializes Update/Save/Reload. It is never held while
	// observers run.
	writeMu sync.Mutex

	mu  sync.RWMutex
	set classification.Set
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// WithMetrics sets the metrics handle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store over backend holding the empty set. Call Load to read
// persisted settings.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   zap.NewNop(),
		notifier: notify.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("settings")
	return s
}

// Open creates a store and loads persisted settings.
func Open(backend Backend, opts ...Option) *Store {
	s := New(backend, opts...)
	s.Load()
	return s
}

// Current returns the current set. The returned Set is immutable.
func (s *Store) Current() classification.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// Load replaces the current set with the persisted one. A missing
// collection yields the empty set. Backend failures are absorbed and also
// yield the empty set.
func (s *Store) Load() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	set, err := s.read()
	if err != nil {
		set = classification.Empty()
	}
	s.replace(set)

	if err != nil {
		s.metrics.SettingsFailure("load")
		s.logger.DPanic("loading classification settings failed",
			zap.String("path", CollectionPath), zap.Error(err))
		return
	}
	s.logger.Debug("classification settings loaded", zap.Int("count", set.Len()))
}

// Update normalizes raw and replaces the current set. Nothing is persisted
// until Save.
func (s *Store) Update(raw []string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.replace(classification.NewSet(raw))
}

// UpdateList is Update for a comma-separated list.
func (s *Store) UpdateList(raw string) {
	s.Update(strings.Split(raw, ","))
}

// Save persists the current set by recreating the collection with one
// boolean property per name, then notifies subscribers on the calling
// goroutine. Subscribers are not notified if persistence fails.
func (s *Store) Save() {
	s.writeMu.Lock()
	set := s.Current()
	err := s.write(set)
	s.writeMu.Unlock()

	if err != nil {
		s.metrics.SettingsFailure("save")
		s.logger.DPanic("saving classification settings failed",
			zap.String("path", CollectionPath), zap.Error(err))
		return
	}

	s.metrics.SettingsSaved()
	s.logger.Debug("classification settings saved", zap.Int("count", set.Len()))
	s.notifier.Notify(notify.Change{Type: notify.ChangeSaved, Set: set, Source: "save"})
}

// Reload re-reads the backend after an external edit. If the persisted set
// differs from the current one, it replaces it and notifies subscribers.
// On failure the current set is kept.
func (s *Store) Reload() {
	s.writeMu.Lock()
	set, err := s.read()
	changed := false
	if err == nil && !set.Equal(s.Current()) {
		s.replace(set)
		changed = true
	}
	s.writeMu.Unlock()

	if err != nil {
		s.metrics.SettingsFailure("reload")
		s.logger.DPanic("reloading classification settings failed",
			zap.String("path", CollectionPath), zap.Error(err))
		return
	}
	if !changed {
		return
	}

	s.logger.Info("classification settings changed on disk", zap.Stringer("set", set))
	s.notifier.Notify(notify.Change{Type: notify.ChangeReloaded, Set: set, Source: "reload"})
}

// Subscribe registers an observer for saves and reloads. Observers run
// synchronously and must not block or call Update/Save/Reload.
func (s *Store) Subscribe(observer notify.Observer) *notify.Subscription {
	return s.notifier.Subscribe(observer)
}

// Close drops all subscribers.
func (s *Store) Close() {
	s.notifier.Close()
}

func (s *Store) replace(set classification.Set) {
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	s.metrics.SetClassifications(set.Len())
}

// read loads the persisted set, preferring the canonical collection and
// falling back to the legacy comma-joined property.
func (s *Store) read() (set classification.Set, err error) {
	defer recoverBackend(&err)

	exists, err := s.backend.CollectionExists(CollectionPath)
	if err != nil {
		return classification.Set{}, fmt.Errorf("checking %s: %w", CollectionPath, err)
	}
	if exists {
		props, err := s.backend.PropertyNamesAndValues(CollectionPath)
		if err != nil {
			return classification.Set{}, fmt.Errorf("reading %s: %w", CollectionPath, err)
		}
		names := make([]string, 0, len(props))
		for name, value := range props {
			if enabled, ok := value.(bool); ok && !enabled {
				continue
			}
			names = append(names, name)
		}
		return classification.NewSet(names), nil
	}

	return s.readLegacy()
}

func (s *Store) readLegacy() (classification.Set, error) {
	exists, err := s.backend.CollectionExists(RootCollection)
	if err != nil {
		return classification.Set{}, fmt.Errorf("checking %s: %w", RootCollection, err)
	}
	if !exists {
		return classification.Empty(), nil
	}

	raw, err := s.backend.GetString(RootCollection, LegacyKey)
	if err != nil {
		if isNotFound(err) {
			return classification.Empty(), nil
		}
		return classification.Set{}, fmt.Errorf("reading %s\\%s: %w", RootCollection, LegacyKey, err)
	}
	s.logger.Info("migrating legacy comma-separated classification setting")
	return classification.ParseList(raw), nil
}

func (s *Store) write(set classification.Set) (err error) {
	defer recoverBackend(&err)

	if err := s.backend.DeleteCollection(CollectionPath); err != nil {
		return fmt.Errorf("deleting %s: %w", CollectionPath, err)
	}
	if err := s.backend.CreateCollection(CollectionPath); err != nil {
		return fmt.Errorf("creating %s: %w", CollectionPath, err)
	}
	for _, name := range set.Names() {
		if err := s.backend.SetBoolean(CollectionPath, name, true); err != nil {
			return fmt.Errorf("writing %q: %w", name, err)
		}
	}
	return nil
}

// recoverBackend turns a panicking backend into an error.
func recoverBackend(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("settings backend panic: %v", r)
	}
}
