package lstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// Options configures the quota of a local store. Zero values mean no limit.
type Options struct {
	MaxKeys       int // Maximum number of keys (0 = unlimited)
	MaxValueBytes int // Maximum size of a single value (0 = unlimited)
}

// Store is an in-process store.IStore. Besides the interface methods it can
// apply changes as if they came from another device (see InjectRemote).
type Store struct {
	data     *xsync.MapOf[string, []byte]
	watchers *store.Watchers
	opts     Options
	syncs    atomic.Uint64
	closed   atomic.Bool
}

// NewLocalStore creates a new local store instance.
// The options are optional, nil means no quota.
func NewLocalStore(opts *Options) *Store {
	if opts == nil {
		opts = &Options{}
	}
	return &Store{
		data:     xsync.NewMapOf[string, []byte](),
		watchers: store.NewWatchers(),
		opts:     *opts,
	}
}

// copyBytes copies value to prevent memory corruption through aliasing.
func copyBytes(value []byte) []byte {
	c := make([]byte, len(value))
	copy(c, value)
	return c
}

// checkQuota returns a RetCQuotaExceeded error if writing value under key would exceed the configured quota.
func (s *Store) checkQuota(key string, value []byte) error {
	if s.opts.MaxValueBytes > 0 && len(value) > s.opts.MaxValueBytes {
		return store.NewError(store.RetCQuotaExceeded,
			fmt.Sprintf("value for key %s has %d bytes, limit is %d", key, len(value), s.opts.MaxValueBytes))
	}
	if s.opts.MaxKeys > 0 && s.data.Size() >= s.opts.MaxKeys {
		if _, ok := s.data.Load(key); !ok {
			return store.NewError(store.RetCQuotaExceeded,
				fmt.Sprintf("store holds %d keys, limit is %d", s.data.Size(), s.opts.MaxKeys))
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, store.NewError(store.RetCClosed, "store is closed")
	}
	val, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return copyBytes(val), true, nil
}

func (s *Store) Set(key string, value []byte) error {
	if s.closed.Load() {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	if err := s.checkQuota(key, value); err != nil {
		return err
	}
	s.data.Store(key, copyBytes(value))
	return nil
}

func (s *Store) Delete(key string) error {
	if s.closed.Load() {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	s.data.Delete(key)
	return nil
}

// Synchronize has nothing to flush for an in-process store; it only counts the call.
func (s *Store) Synchronize(ctx context.Context) error {
	if s.closed.Load() {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.syncs.Add(1)
	return nil
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	return s.watchers.Add(handler)
}

func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.watchers.Clear()
	}
	return nil
}

// --------------------------------------------------------------------------
// Remote Change Simulation
// --------------------------------------------------------------------------

// InjectRemote applies values as if another device had written them and
// notifies all watchers with the given reason. A nil value deletes the key.
func (s *Store) InjectRemote(reason store.ChangeReason, values map[string][]byte) {
	if s.closed.Load() {
		return
	}
	keys := make([]string, 0, len(values))
	for key, value := range values {
		if value == nil {
			s.data.Delete(key)
		} else {
			s.data.Store(key, copyBytes(value))
		}
		keys = append(keys, key)
	}
	s.watchers.Notify(store.ChangeEvent{Reason: reason, Keys: keys})
}

// SyncCount returns how often Synchronize completed successfully.
func (s *Store) SyncCount() uint64 {
	return s.syncs.Load()
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.data.Size()
}
