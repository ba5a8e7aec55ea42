package cloudstorage

import (
	"errors"
	"sync"

	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("cloudstorage")

var (
	// ErrClosed is reported when Set is called on a closed binding.
	ErrClosed = errors.New("binding is closed")
	// ErrDecode is reported when a stored value cannot be decoded. The binding falls back to its default.
	ErrDecode = errors.New("decode failed")
	// ErrEncode is reported when a value cannot be encoded. The write is skipped.
	ErrEncode = errors.New("encode failed")
	// ErrWrite is reported when the store rejects a write. It wraps the store error.
	ErrWrite = errors.New("write failed")
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type bindingOptions struct {
	onError func(key string, err error)
}

// Option configures a binding.
type Option func(*bindingOptions)

// WithErrorHandler registers fn to receive decode and encode errors, writes
// rejected by the store and writes to a closed binding. fn is called in addition to logging.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(o *bindingOptions) {
		o.onError = fn
	}
}

// --------------------------------------------------------------------------
// Binding
// --------------------------------------------------------------------------

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Binding ties one key of a cloudsync.Sync to a typed value. Reads go to the
// store every time; there is no cached copy. Writes go through to the store,
// request a synchronisation and notify the listeners.
//
// A binding registers an observer for its key on creation and must be released
// with Close.
//
// Thread-safety: All methods are thread-safe. Listeners are called without
// holding internal locks, on the goroutine that caused the change.
type Binding[T any] struct {
	facade *cloudsync.Sync
	key    string
	def    T
	codec  codec[T]
	opts   bindingOptions

	mu        sync.Mutex
	listeners []listener[T]
	nextID    uint64
	token     cloudsync.Token
	closed    bool
}

func newBinding[T any](s *cloudsync.Sync, key string, def T, c codec[T], opts []Option) *Binding[T] {
	b := &Binding[T]{
		facade: s,
		key:    key,
		def:    def,
		codec:  c,
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	b.token = s.AddObserver(key, b.remoteChanged)
	return b
}

// Key returns the store key of the binding.
func (b *Binding[T]) Key() string {
	return b.key
}

// Value returns the stored value, or the default if the key is unset, holds a
// value of another type or cannot be decoded. Reading never writes.
func (b *Binding[T]) Value() T {
	v, ok, err := b.codec.read(b.facade, b.key)
	if err != nil {
		b.report(err)
		return b.def
	}
	if !ok {
		return b.def
	}
	return v
}

// Set writes v, requests a synchronisation and notifies every listener once
// with the value the binding reads afterwards. For URL and Data bindings a nil
// write clears the key, so listeners receive the default.
// If v cannot be encoded or the store rejects the write, the error is reported
// and no listener is called.
func (b *Binding[T]) Set(v T) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		b.report(ErrClosed)
		return
	}

	if err := b.codec.write(b.facade, b.key, v); err != nil {
		b.report(err)
		return
	}
	b.facade.Synchronize()
	b.notify(b.Value())
}

// Update sets the value to fn applied to the current value.
func (b *Binding[T]) Update(fn func(T) T) {
	b.Set(fn(b.Value()))
}

// AddListener registers fn to be called with the new value after every local
// write and every change reported by the store. The returned function removes
// the listener and is safe to call more than once.
func (b *Binding[T]) AddListener(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.removeListener(id) })
	}
}

func (b *Binding[T]) removeListener(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Close deregisters the observer and drops all listeners. Later calls to Set are
// ignored and reported with ErrClosed. Close is idempotent.
func (b *Binding[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.listeners = nil
	token := b.token
	b.mu.Unlock()

	b.facade.RemoveObserver(token)
	return nil
}

// remoteChanged is the observer registered with the facade.
func (b *Binding[T]) remoteChanged() {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.notify(b.Value())
}

// notify calls the listeners outside the lock.
func (b *Binding[T]) notify(v T) {
	b.mu.Lock()
	listeners := make([]listener[T], len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l.fn(v)
	}
}

func (b *Binding[T]) report(err error) {
	log.Warningf("binding %s: %v", b.key, err)
	if b.opts.onError != nil {
		b.opts.onError(b.key, err)
	}
}
