package cloudsync

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("cloudsync")

// defaultSyncTimeout bounds a background synchronisation started by Synchronize.
const defaultSyncTimeout = 30 * time.Second

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	syncTimeout time.Duration
}

// Option configures a Sync.
type Option func(*options)

// WithSyncTimeout sets the timeout of background synchronisations (default 30s).
func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.syncTimeout = d
		}
	}
}

// --------------------------------------------------------------------------
// Sync Facade
// --------------------------------------------------------------------------

// Sync is the shared gateway to a store.IStore. It offers typed getters and
// setters, a fire-and-forget Synchronize and a per-key observer registry that
// is notified when the store reports changes made elsewhere.
//
// A Sync is created once at start-up and passed to every binding.
//
// Thread-safety: All methods are thread-safe.
type Sync struct {
	store       store.IStore
	opts        options
	cancelWatch func()

	observers *observerRegistry
	metrics   *syncMetrics

	// synchronisation state, see Synchronize
	syncRunning atomic.Bool
	syncPending atomic.Bool
	mu          sync.Mutex // guards closed and wg.Add
	closed      bool
	wg          sync.WaitGroup
}

// New creates a facade over s and subscribes to its change events.
// The facade does not take ownership of s; the caller closes it after Close.
func New(s store.IStore, opts ...Option) *Sync {
	o := options{syncTimeout: defaultSyncTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	cs := &Sync{
		store:     s,
		opts:      o,
		observers: newObserverRegistry(),
	}
	cs.metrics = newSyncMetrics(func() float64 {
		return float64(cs.observers.len())
	})
	cs.cancelWatch = s.Watch(cs.handleChange)
	return cs
}

// Close stops watching the store, waits for running synchronisations and drops all observers.
// It is safe to call Close more than once.
func (s *Sync) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancelWatch()
	s.wg.Wait()
	s.observers.clear()
	return nil
}

// handleChange routes a change event of the store to the registered observers.
func (s *Sync) handleChange(event store.ChangeEvent) {
	switch event.Reason {
	case store.ChangeReasonQuotaViolation, store.ChangeReasonAccountChange:
		log.Warningf("store reported %s for %d keys", event.Reason, len(event.Keys))
	default:
		log.Debugf("store reported %s for keys %v", event.Reason, event.Keys)
	}

	s.metrics.remoteChanges.Add(len(event.Keys))
	for _, key := range event.Keys {
		if notify, ok := s.observers.lookup(key); ok {
			notify()
		}
	}
}

// --------------------------------------------------------------------------
// Raw access (used by the typed getters and setters)
// --------------------------------------------------------------------------

// get returns the payload stored under key if it carries the wanted kind.
func (s *Sync) get(key string, want kind) ([]byte, bool) {
	s.metrics.reads.Inc()

	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.metrics.readErrors.Inc()
		log.Errorf("failed to read key %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	payload, ok := decodeValue(raw, want)
	if !ok {
		s.metrics.typeMismatch.Inc()
		log.Debugf("key %s does not hold a %s value", key, want)
		return nil, false
	}
	return payload, true
}

// set writes an encoded value. Errors are logged, counted and returned.
func (s *Sync) set(key string, raw []byte) error {
	s.metrics.writes.Inc()
	if err := s.store.Set(key, raw); err != nil {
		s.metrics.writeErrors.Inc()
		log.Errorf("failed to write key %s: %v", key, err)
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Typed getters
// --------------------------------------------------------------------------

// Bool returns the boolean stored under key. ok is false if the key is unset
// or holds a value of another type.
func (s *Sync) Bool(key string) (v bool, ok bool) {
	payload, ok := s.get(key, kindBool)
	if !ok {
		return false, false
	}
	v, ok = decodeBool(payload)
	if !ok {
		s.malformed(key, kindBool)
	}
	return v, ok
}

// Int returns the integer stored under key.
func (s *Sync) Int(key string) (v int, ok bool) {
	payload, ok := s.get(key, kindInt)
	if !ok {
		return 0, false
	}
	v, ok = decodeInt(payload)
	if !ok {
		s.malformed(key, kindInt)
	}
	return v, ok
}

// Double returns the floating point number stored under key.
func (s *Sync) Double(key string) (v float64, ok bool) {
	payload, ok := s.get(key, kindDouble)
	if !ok {
		return 0, false
	}
	v, ok = decodeDouble(payload)
	if !ok {
		s.malformed(key, kindDouble)
	}
	return v, ok
}

// String returns the string stored under key.
func (s *Sync) String(key string) (v string, ok bool) {
	payload, ok := s.get(key, kindString)
	if !ok {
		return "", false
	}
	return string(payload), true
}

// URL returns the URL stored under key.
func (s *Sync) URL(key string) (v *url.URL, ok bool) {
	payload, ok := s.get(key, kindURL)
	if !ok {
		return nil, false
	}
	v, ok = decodeURL(payload)
	if !ok {
		s.malformed(key, kindURL)
	}
	return v, ok
}

// Data returns the bytes stored under key. The slice is owned by the caller.
func (s *Sync) Data(key string) (v []byte, ok bool) {
	payload, ok := s.get(key, kindData)
	if !ok {
		return nil, false
	}
	return payload, true
}

// malformed logs a payload that carries the right tag but cannot be decoded.
func (s *Sync) malformed(key string, k kind) {
	s.metrics.typeMismatch.Inc()
	log.Warningf("key %s holds a malformed %s value", key, k)
}

// --------------------------------------------------------------------------
// Typed setters
// --------------------------------------------------------------------------

// The setters log and count failed writes. The returned error may be ignored
// by callers that only need the side effect.

// SetBool writes a boolean.
func (s *Sync) SetBool(key string, v bool) error { return s.set(key, encodeBool(v)) }

// SetInt writes an integer.
func (s *Sync) SetInt(key string, v int) error { return s.set(key, encodeInt(v)) }

// SetDouble writes a floating point number.
func (s *Sync) SetDouble(key string, v float64) error { return s.set(key, encodeDouble(v)) }

// SetString writes a string.
func (s *Sync) SetString(key string, v string) error { return s.set(key, encodeString(v)) }

// SetURL writes a URL. A nil URL clears the key.
func (s *Sync) SetURL(key string, v *url.URL) error {
	if v == nil {
		return s.Remove(key)
	}
	return s.set(key, encodeURL(v))
}

// SetData writes a byte slice. A nil slice clears the key, an empty non-nil slice is stored.
func (s *Sync) SetData(key string, v []byte) error {
	if v == nil {
		return s.Remove(key)
	}
	return s.set(key, encodeValue(kindData, v))
}

// Remove clears key.
func (s *Sync) Remove(key string) error {
	s.metrics.writes.Inc()
	if err := s.store.Delete(key); err != nil {
		s.metrics.writeErrors.Inc()
		log.Errorf("failed to remove key %s: %v", key, err)
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Synchronisation
// --------------------------------------------------------------------------

// Synchronize asks the store to flush local writes and pull remote changes.
// It returns immediately; the work runs on a background goroutine. Calls made
// while a synchronisation is running are coalesced into one follow-up run.
// Failures are logged and counted, never returned.
func (s *Sync) Synchronize() {
	if s.syncPending.Swap(true) {
		// a run is already requested and will cover this call
		s.metrics.syncCoalesced.Inc()
		return
	}
	if !s.syncRunning.CompareAndSwap(false, true) {
		return
	}
	if !s.startWorker() {
		s.syncRunning.Store(false)
	}
}

// startWorker starts the synchronisation goroutine unless the facade is closed.
func (s *Sync) startWorker() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go s.syncLoop()
	return true
}

// syncLoop runs synchronisations until no request is pending.
func (s *Sync) syncLoop() {
	defer s.wg.Done()
	for {
		for s.syncPending.Swap(false) {
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.syncTimeout)
			if err := s.SynchronizeContext(ctx); err != nil {
				log.Warningf("background synchronisation failed: %v", err)
			}
			cancel()
		}
		s.syncRunning.Store(false)

		// a request may have arrived after the last Swap but before running was reset
		if !s.syncPending.Load() || !s.syncRunning.CompareAndSwap(false, true) {
			return
		}
	}
}

// SynchronizeContext is the blocking variant of Synchronize.
func (s *Sync) SynchronizeContext(ctx context.Context) error {
	start := time.Now()
	s.metrics.syncs.Inc()
	err := s.store.Synchronize(ctx)
	s.metrics.syncDuration.Update(time.Since(start).Seconds())
	if err != nil {
		s.metrics.syncFailures.Inc()
	}
	return err
}

// --------------------------------------------------------------------------
// Observers
// --------------------------------------------------------------------------

// AddObserver registers notify to be called when the store reports a change of key
// made elsewhere. A key has at most one observer: a new registration replaces the
// previous one. notify runs on the store's watch goroutine.
func (s *Sync) AddObserver(key string, notify func()) Token {
	token, replaced := s.observers.add(key, notify)
	if replaced {
		log.Warningf("observer for key %s replaced by a newer registration", key)
	}
	return token
}

// RemoveObserver removes the registration identified by token. Removing an unknown,
// replaced or already removed token is a no-op.
func (s *Sync) RemoveObserver(token Token) {
	s.observers.remove(token)
}
