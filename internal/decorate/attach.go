package decorate

import (
	"github.com/dshills/italics/internal/format"
	"github.com/dshills/italics/internal/settings"
	"github.com/dshills/italics/internal/view"
)

// propertyKey is the view property under which the engine is cached.
type propertyKey struct{}

// Attach returns the engine cached on v, creating and starting it on first
// use. Later calls return the same engine and ignore table and opts.
func Attach(v *view.View, table format.Table, store *settings.Store, opts ...Option) *Engine {
	e := v.Properties().GetOrCreateSingleton(propertyKey{}, func() any {
		return newEngine(v, table, store, opts...)
	}).(*Engine)

	// Started outside the property bag's lock: the first pass may call
	// back into the view. Every caller starts it, so none gets back an
	// engine that is not subscribed yet; start is a no-op after the first.
	e.start()
	return e
}

// Lookup returns the engine attached to v, if any.
func Lookup(v *view.View) (*Engine, bool) {
	value, ok := v.Properties().Get(propertyKey{})
	if !ok {
		return nil, false
	}
	e, ok := value.(*Engine)
	return e, ok
}

// Detach closes the engine attached to v and removes it from the view.
// It reports whether an engine was attached.
func Detach(v *view.View) bool {
	e, ok := Lookup(v)
	if !ok {
		return false
	}
	e.Close()
	v.Properties().Remove(propertyKey{})
	return true
}
