// Package notify delivers classification-settings change notifications.
//
// The notify package implements an observer pattern that allows decoration
// engines to subscribe to settings changes. Delivery is synchronous, on the
// goroutine that raised the change, and happens outside the notifier's lock
// so an observer may subscribe or unsubscribe from within its callback.
package notify

import (
	"sort"
	"sync"

	"github.com/dshills/italics/internal/classification"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSaved indicates the settings were durably saved.
	ChangeSaved ChangeType = iota

	// ChangeReloaded indicates the settings were re-read from the backend
	// and differ from what was held before.
	ChangeReloaded
)

func (c ChangeType) String() string {
	switch c {
	case ChangeSaved:
		return "saved"
	case ChangeReloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	Type ChangeType

	// Set is the classification set in effect after the change.
	Set classification.Set

	// Source names the Store operation that raised the change.
	Source string
}

// Observer is called when settings change. Observers must not block.
type Observer func(change Change)

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	id       uint64
	notifier *Notifier
	once     sync.Once
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.notifier == nil {
		return
	}
	s.once.Do(func() {
		s.notifier.unsubscribe(s.id)
	})
}

// Notifier manages settings change subscriptions.
type Notifier struct {
	mu        sync.RWMutex
	observers map[uint64]Observer

	nextID uint64
	closed bool
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{
		observers: make(map[uint64]Observer),
	}
}

// Subscribe registers observer. On a closed notifier the returned
// subscription is inert.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	if !n.closed {
		n.observers[id] = observer
	}

	return &Subscription{
		id:       id,
		notifier: n,
	}
}

// Notify sends a change to every observer, in subscription order.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}

	ids := make([]uint64, 0, len(n.observers))
	for id := range n.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, n.observers[id])
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Close drops all observers. Later notifications are ignored and later
// subscriptions are inert.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	n.observers = make(map[uint64]Observer)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.observers, id)
}
