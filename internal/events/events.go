// Package events is a typed in-process dispatcher connecting the quote
// editor to the table layout engine.
package events

import (
	"slices"
	"sync"
)

// TableAdded is published when a managed table appears.
type TableAdded struct {
	TableID string
}

// RowAdded is published when a row is inserted into a managed table.
type RowAdded struct {
	TableID string
	RowID   string
}

// LayoutChanged is published when something outside a table changed the
// space it lays out into.
type LayoutChanged struct {
	Reason string
}

// Topic fans one event type out to its subscribers in subscription order.
type Topic[E any] struct {
	subs []subscription[E]
	next int
	mu   sync.RWMutex
}

type subscription[E any] struct {
	fn func(E)
	id int
}

// Subscribe registers fn and returns a function removing it.
func (t *Topic[E]) Subscribe(fn func(E)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.subs = append(t.subs, subscription[E]{id: id, fn: fn})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.subs = slices.DeleteFunc(t.subs, func(s subscription[E]) bool { return s.id == id })
	}
}

// Publish calls every subscriber with e. Subscribers run synchronously on
// the publishing goroutine.
func (t *Topic[E]) Publish(e E) {
	t.mu.RLock()
	subs := slices.Clone(t.subs)
	t.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of subscribers.
func (t *Topic[E]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Dispatcher groups the topics used across the application.
type Dispatcher struct {
	TableAdded    Topic[TableAdded]
	RowAdded      Topic[RowAdded]
	LayoutChanged Topic[LayoutChanged]
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}
