package format

import (
	"errors"
	"sync"
)

// Errors returned by Map.
var (
	ErrNilClassification     = errors.New("format: nil classification")
	ErrUnknownClassification = errors.New("format: unknown classification")
)

// Classification identifies one lexical/semantic category in a formatting
// table. Identity is by pointer; the name is what user settings refer to.
type Classification struct {
	name string
}

// NewClassification creates a classification with the given name.
func NewClassification(name string) *Classification {
	return &Classification{name: name}
}

// Name returns the classification name.
func (c *Classification) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// String implements fmt.Stringer.
func (c *Classification) String() string {
	return c.Name()
}

// Table is the per-view formatting table the decoration engine works on.
//
// PriorityOrder may contain nil entries for classifications the host could
// not resolve; callers skip them. BeginBatchUpdate and EndBatchUpdate
// bracket a group of SetStyle calls so observers see a single change.
type Table interface {
	PriorityOrder() []*Classification
	Style(c *Classification) (Style, error)
	SetStyle(c *Classification, s Style) error
	BeginBatchUpdate()
	EndBatchUpdate()
}

// Change describes classifications whose style was replaced.
type Change struct {
	Classifications []*Classification
}

// ChangeObserver is called after styles change.
type ChangeObserver func(change Change)

// Map is an in-process Table keyed by classification.
// It is safe for concurrent use. Observers are called without the lock held.
type Map struct {
	mu sync.RWMutex

	order  []*Classification
	byName map[string]*Classification
	styles map[*Classification]Style

	batchDepth int
	pending    []*Classification

	observers map[uint64]ChangeObserver
	nextID    uint64
}

// NewMap creates an empty formatting table.
func NewMap() *Map {
	return &Map{
		byName:    make(map[string]*Classification),
		styles:    make(map[*Classification]Style),
		observers: make(map[uint64]ChangeObserver),
	}
}

// Register adds a classification at the lowest priority with the given
// style. Registering an existing name returns the existing classification
// and leaves its style and position untouched.
func (m *Map) Register(name string, s Style) *Classification {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.byName[name]; ok {
		return c
	}
	c := NewClassification(name)
	m.order = append(m.order, c)
	m.byName[name] = c
	m.styles[c] = s
	return c
}

// Lookup returns the classification registered under name.
func (m *Map) Lookup(name string) (*Classification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byName[name]
	return c, ok
}

// Len returns the number of registered classifications.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// PriorityOrder returns a copy of the classifications in priority order.
func (m *Map) PriorityOrder() []*Classification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Classification, len(m.order))
	copy(out, m.order)
	return out
}

// Style returns the style stored for c.
func (m *Map) Style(c *Classification) (Style, error) {
	if c == nil {
		return Style{}, ErrNilClassification
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.styles[c]
	if !ok {
		return Style{}, ErrUnknownClassification
	}
	return s, nil
}

// SetStyle replaces the style stored for c. Outside a batch, observers are
// notified immediately.
func (m *Map) SetStyle(c *Classification, s Style) error {
	if c == nil {
		return ErrNilClassification
	}

	m.mu.Lock()
	if _, ok := m.styles[c]; !ok {
		m.mu.Unlock()
		return ErrUnknownClassification
	}
	m.styles[c] = s

	if m.batchDepth > 0 {
		m.addPending(c)
		m.mu.Unlock()
		return nil
	}
	observers := m.snapshotObservers()
	m.mu.Unlock()

	deliver(observers, Change{Classifications: []*Classification{c}})
	return nil
}

// BeginBatchUpdate starts (or nests) a batch update.
func (m *Map) BeginBatchUpdate() {
	m.mu.Lock()
	m.batchDepth++
	m.mu.Unlock()
}

// EndBatchUpdate ends a batch update. When the outermost batch ends, one
// change covering every modified classification is delivered.
// Calling it without a matching BeginBatchUpdate is a no-op.
func (m *Map) EndBatchUpdate() {
	m.mu.Lock()
	if m.batchDepth == 0 {
		m.mu.Unlock()
		return
	}
	m.batchDepth--
	if m.batchDepth > 0 || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	changed := m.pending
	m.pending = nil
	observers := m.snapshotObservers()
	m.mu.Unlock()

	deliver(observers, Change{Classifications: changed})
}

// InBatchUpdate reports whether a batch update is open.
func (m *Map) InBatchUpdate() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batchDepth > 0
}

// OnChange registers an observer and returns a function that removes it.
func (m *Map) OnChange(observer ChangeObserver) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = observer
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// addPending records c once. Caller holds m.mu.
func (m *Map) addPending(c *Classification) {
	for _, p := range m.pending {
		if p == c {
			return
		}
	}
	m.pending = append(m.pending, c)
}

// snapshotObservers copies the observer set. Caller holds m.mu.
func (m *Map) snapshotObservers() []ChangeObserver {
	out := make([]ChangeObserver, 0, len(m.observers))
	for _, obs := range m.observers {
		out = append(out, obs)
	}
	return out
}

func deliver(observers []ChangeObserver, change Change) {
	for _, obs := range observers {
		obs(change)
	}
}
