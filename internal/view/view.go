// Package view models an open editor view: the focus events a decoration
// engine reacts to and the per-view property bag it is cached in.
package view

import (
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// View represents one open document view.
type View struct {
	id   string
	Name string

	focused atomic.Bool

	mu       sync.Mutex
	handlers map[uint64]func()
	nextID   uint64

	props *Properties
}

// New creates an unfocused view. name is used for display only.
func New(name string) *View {
	if name == "" {
		name = "Untitled"
	} else {
		name = filepath.Base(name)
	}
	return &View{
		id:       uuid.NewString(),
		Name:     name,
		handlers: make(map[uint64]func()),
		props:    newProperties(),
	}
}

// ID returns the view's unique id.
func (v *View) ID() string {
	return v.id
}

// Properties returns the view's property bag.
func (v *View) Properties() *Properties {
	return v.props
}

// IsFocused reports whether the view currently has focus.
func (v *View) IsFocused() bool {
	return v.focused.Load()
}

// OnFocusGained registers handler to run each time the view gains focus.
// The returned function removes it and may be called more than once.
func (v *View) OnFocusGained(handler func()) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.handlers[id] = handler
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.handlers, id)
			v.mu.Unlock()
		})
	}
}

// Focus gives the view focus. Handlers run synchronously on the calling
// goroutine, in registration order, without the view lock held. Focusing
// an already focused view does nothing.
func (v *View) Focus() {
	if !v.focused.CompareAndSwap(false, true) {
		return
	}
	for _, h := range v.snapshot() {
		h()
	}
}

// Blur removes focus from the view.
func (v *View) Blur() {
	v.focused.Store(false)
}

func (v *View) snapshot() []func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids := make([]uint64, 0, len(v.handlers))
	for id := range v.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(), len(ids))
	for i, id := range ids {
		out[i] = v.handlers[id]
	}
	return out
}

// Properties is a per-view key-value bag.
type Properties struct {
	mu     sync.Mutex
	values map[any]any
}

func newProperties() *Properties {
	return &Properties{values: make(map[any]any)}
}

// Get returns the value stored under key.
func (p *Properties) Get(key any) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

// Remove deletes key.
func (p *Properties) Remove(key any) {
	p.mu.Lock()
	delete(p.values, key)
	p.mu.Unlock()
}

// GetOrCreateSingleton returns the value stored under key, calling create
// to make it on first use. create runs at most once per key while the value
// is present, and runs with the bag locked, so it must not touch the bag.
func (p *Properties) GetOrCreateSingleton(key any, create func() any) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.values[key]; ok {
		return v
	}
	v := create()
	p.values[key] = v
	return v
}
