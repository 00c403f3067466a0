// Package decorate keeps a view's formatting table in step with the
// classification names the user chose to italicize.
//
// An Engine is bound to one view and its table. It synchronizes once when
// started. Settings changes only mark it stale; the next focus-gained event
// on the view runs one batched pass, however many changes arrived meanwhile.
// A pass writes only entries whose italic flag is wrong and never touches
// any other attribute.
package decorate

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/italics/internal/classification"
	"github.com/dshills/italics/internal/format"
	"github.com/dshills/italics/internal/logging"
	"github.com/dshills/italics/internal/metrics"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/settings/notify"
	"github.com/dshills/italics/internal/view"
)

// Stats reports what an engine has done so far.
type Stats struct {
	// Passes counts synchronization passes that ran, including failed ones.
	Passes int64

	// Writes counts italic-flag writes to the formatting table.
	Writes int64

	// Failures counts passes aborted by a formatting table error.
	Failures int64

	// Skipped counts synchronization requests that did not run a pass.
	Skipped int64
}

// Engine synchronizes one view's formatting table with the settings store.
type Engine struct {
	id      string
	view    *view.View
	table   format.Table
	store   *settings.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	// syncing is held for the duration of a pass. A nested request fails
	// the swap and returns.
	syncing atomic.Bool

	// staleMu guards stale. OnFocusGained holds it across the pass so a
	// save that lands mid-pass is not lost when the flag is cleared.
	staleMu sync.Mutex
	stale   bool

	// lifeMu guards the subscriptions. A closed engine never subscribes.
	lifeMu      sync.Mutex
	started     bool
	closed      bool
	sub         *notify.Subscription
	unsubscribe func()

	passes   atomic.Int64
	writes   atomic.Int64
	failures atomic.Int64
	skipped  atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(l)
	}
}

// WithMetrics sets the metrics handle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine for v and table, subscribes to store changes and to
// v's focus-gained event, then runs one synchronization pass.
func New(v *view.View, table format.Table, store *settings.Store, opts ...Option) *Engine {
	e := newEngine(v, table, store, opts...)
	e.start()
	return e
}

func newEngine(v *view.View, table format.Table, store *settings.Store, opts ...Option) *Engine {
	e := &Engine{
		id:     uuid.NewString(),
		view:   v,
		table:  table,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("decorate").With(
		zap.String("engine", e.id),
		zap.String("view", v.ID()),
	)
	return e
}

// start subscribes and then runs the first pass, so a change raised while
// the pass runs leaves the engine stale instead of going unseen. It is a
// no-op once started or closed.
func (e *Engine) start() {
	e.lifeMu.Lock()
	if e.started || e.closed {
		e.lifeMu.Unlock()
		return
	}
	e.started = true
	e.sub = e.store.Subscribe(e.onSettingsChanged)
	e.unsubscribe = e.view.OnFocusGained(e.OnFocusGained)
	e.lifeMu.Unlock()

	e.Synchronize()
	e.logger.Debug("decoration engine started", zap.String("name", e.view.Name))
}

// ID returns the engine's unique id.
func (e *Engine) ID() string {
	return e.id
}

// View returns the view the engine is bound to.
func (e *Engine) View() *view.View {
	return e.view
}

// Stale reports whether a settings change is waiting for the next focus.
func (e *Engine) Stale() bool {
	e.staleMu.Lock()
	defer e.staleMu.Unlock()
	return e.stale
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Passes:   e.passes.Load(),
		Writes:   e.writes.Load(),
		Failures: e.failures.Load(),
		Skipped:  e.skipped.Load(),
	}
}

// Close stops reacting to settings and focus events.
// An engine closed before it started never subscribes.
func (e *Engine) Close() {
	e.lifeMu.Lock()
	if e.closed {
		e.lifeMu.Unlock()
		return
	}
	e.closed = true
	sub, unsubscribe := e.sub, e.unsubscribe
	e.sub, e.unsubscribe = nil, nil
	e.lifeMu.Unlock()

	sub.Unsubscribe()
	if unsubscribe != nil {
		unsubscribe()
	}
	e.logger.Debug("decoration engine closed")
}

// onSettingsChanged marks the engine stale. It does not synchronize: a
// background view picks the change up when it is focused again.
func (e *Engine) onSettingsChanged(change notify.Change) {
	e.staleMu.Lock()
	e.stale = true
	e.staleMu.Unlock()

	e.metrics.StaleMark()
	e.logger.Debug("marked stale", zap.Stringer("change", change.Type))
}

// OnFocusGained runs one synchronization pass if settings changed since the
// last completed pass. The stale flag is cleared only when the pass
// completes; a failed pass is retried on the next focus. A focus event
// raised by the table while this engine is mid-pass is ignored.
func (e *Engine) OnFocusGained() {
	if e.syncing.Load() {
		e.skip("reentrant")
		return
	}

	e.staleMu.Lock()
	defer e.staleMu.Unlock()

	if !e.stale {
		e.skip("clean")
		return
	}
	if e.synchronize() {
		e.stale = false
	}
}

// Synchronize sets the italic flag of every classification in the table to
// its membership in the store's current set. A call made while a pass is
// already running on this engine returns immediately.
//
// Table errors and panics abort the pass. They are logged with DPanic,
// which panics only in development mode.
func (e *Engine) Synchronize() {
	e.synchronize()
}

func (e *Engine) synchronize() bool {
	if !e.syncing.CompareAndSwap(false, true) {
		e.skip("reentrant")
		return false
	}
	defer e.syncing.Store(false)

	set := e.store.Current()
	writes, err := e.apply(set)

	e.passes.Add(1)
	e.writes.Add(int64(writes))
	e.metrics.SyncPass()

	if err != nil {
		e.failures.Add(1)
		e.metrics.SyncFailure()
		e.logger.DPanic("synchronizing italics failed",
			zap.Int("writes", writes), zap.Error(err))
		return false
	}

	if writes > 0 {
		e.logger.Debug("synchronized italics",
			zap.Int("writes", writes), zap.Int("classifications", set.Len()))
	}
	return true
}

// apply runs one pass inside a batch update. The batch is always closed,
// including when the table panics.
func (e *Engine) apply(set classification.Set) (writes int, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			err = fmt.Errorf("formatting table panic: %v\n%s", r, stack[:n])
		}
	}()

	e.table.BeginBatchUpdate()
	defer e.table.EndBatchUpdate()

	for _, c := range e.table.PriorityOrder() {
		if c == nil {
			continue
		}

		style, err := e.table.Style(c)
		if err != nil {
			return writes, fmt.Errorf("reading style of %q: %w", c.Name(), err)
		}

		want := set.Contains(c.Name())
		if style.IsItalic() == want {
			continue
		}

		if err := e.table.SetStyle(c, style.WithItalic(want)); err != nil {
			return writes, fmt.Errorf("writing style of %q: %w", c.Name(), err)
		}
		writes++
		e.metrics.AttributeWrite(want)
	}
	return writes, nil
}

func (e *Engine) skip(reason string) {
	e.skipped.Add(1)
	e.metrics.SyncSkip(reason)
}
