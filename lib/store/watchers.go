package store

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Watchers is a helper for IStore implementations that keeps the registered
// change handlers and fans events out to them.
//
// Thread-safety: All methods are thread-safe.
type Watchers struct {
	nextID   atomic.Uint64
	handlers *xsync.MapOf[uint64, ChangeHandler]
}

// NewWatchers creates an empty handler set.
func NewWatchers() *Watchers {
	return &Watchers{
		handlers: xsync.NewMapOf[uint64, ChangeHandler](),
	}
}

// Add registers a handler and returns an idempotent cancel function.
func (w *Watchers) Add(handler ChangeHandler) func() {
	id := w.nextID.Add(1)
	w.handlers.Store(id, handler)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.handlers.Delete(id)
		})
	}
}

// Notify calls every registered handler with the event.
// Events without keys are dropped.
func (w *Watchers) Notify(event ChangeEvent) {
	if len(event.Keys) == 0 {
		return
	}
	w.handlers.Range(func(_ uint64, handler ChangeHandler) bool {
		handler(event)
		return true
	})
}

// Len returns the number of registered handlers.
func (w *Watchers) Len() int {
	return w.handlers.Size()
}

// Clear removes all handlers.
func (w *Watchers) Clear() {
	w.handlers.Clear()
}
