// Package watch reloads classification settings when the settings file is
// changed by another program.
//
// The parent directory is watched rather than the file itself: file
// backends replace the file by renaming a temporary file over it, which
// would silently end a watch on the old inode.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/logging"
)

// Common errors returned by watcher operations.
var (
	ErrPathNotExist = errors.New("watch: settings directory does not exist")
)

// Config configures a Watcher.
type Config struct {
	// Debounce coalesces bursts of events into one callback.
	Debounce time.Duration

	// Logger receives watcher diagnostics.
	Logger *zap.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Debounce: 100 * time.Millisecond,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Stats provides watcher status information.
type Stats struct {
	Events  int64
	Reloads int64
	Errors  int64
}

// Watcher calls a function after the watched file changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	config   Config
	logger   *zap.Logger

	events  atomic.Int64
	reloads atomic.Int64
	errors  atomic.Int64

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// New starts watching path. onChange runs on the watcher's goroutine, at
// most once per debounce window.
func New(path string, onChange func(), opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(absPath)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     absPath,
		onChange: onChange,
		config:   config,
		logger:   logging.OrNop(config.Logger).Named("watch").With(zap.String("path", absPath)),
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	return Stats{
		Events:  w.events.Load(),
		Reloads: w.reloads.Load(),
		Errors:  w.errors.Load(),
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.wg.Wait()
		err = w.watcher.Close()
	})
	return err
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.events.Add(1)
			if w.config.Debounce == 0 {
				w.fire()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				timer.Reset(w.config.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.fire()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errors.Add(1)
			w.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether ev touches the watched file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Remove)
}

func (w *Watcher) fire() {
	w.reloads.Add(1)
	w.logger.Debug("settings file changed")
	w.onChange()
}
