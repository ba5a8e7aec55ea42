package testing

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store"
)

// eventTimeout bounds how long the suite waits for an asynchronous change event.
const eventTimeout = 5 * time.Second

// Harness bundles a store under test with a way to change it from "elsewhere".
type Harness struct {
	// Store is the instance under test. The suite closes it.
	Store store.IStore
	// Remote writes value under key as another device would. A nil value deletes the key.
	// The write must eventually be reported by Store.Watch.
	Remote func(key string, value []byte) error
}

// HarnessFactory creates a fresh harness for every sub test.
// It may call t.Skip if the backend is not available.
type HarnessFactory func(t *testing.T) Harness

// RunStoreTests runs the conformance suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory HarnessFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Synchronize", func(t *testing.T) {
			testSynchronize(t, factory(t))
		})

		t.Run("RemoteChange", func(t *testing.T) {
			testRemoteChange(t, factory(t))
		})

		t.Run("RemoteDelete", func(t *testing.T) {
			testRemoteDelete(t, factory(t))
		})

		t.Run("OwnWritesNotReported", func(t *testing.T) {
			testOwnWritesNotReported(t, factory(t))
		})

		t.Run("WatchCancel", func(t *testing.T) {
			testWatchCancel(t, factory(t))
		})

		t.Run("GetInsideHandler", func(t *testing.T) {
			testGetInsideHandler(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// eventRecorder collects change events from a store.
type eventRecorder struct {
	mu     sync.Mutex
	events []store.ChangeEvent
	signal chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{signal: make(chan struct{}, 1)}
}

func (r *eventRecorder) handle(ev store.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// sawKey reports whether any recorded event contains key.
func (r *eventRecorder) sawKey(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		for _, k := range ev.Keys {
			if k == key {
				return true
			}
		}
	}
	return false
}

// waitForKey blocks until an event for key was recorded or the timeout elapsed.
func (r *eventRecorder) waitForKey(key string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if r.sawKey(key) {
			return true
		}
		select {
		case <-r.signal:
		case <-deadline:
			return r.sawKey(key)
		}
	}
}

func synchronize(t *testing.T, s store.IStore) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	if err := s.Synchronize(ctx); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := s.Set(testKey, testValue1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := s.Set(testKey, testValue2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	result, _, _ = s.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists, err = s.Get("nonexistent-key")
	if err != nil {
		t.Fatalf("Get of missing key failed: %v", err)
	}
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _, _ := s.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _, _ := s.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("input")
	if err := s.Set("alias", input); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	input[0] = 'X'
	stored, _, _ := s.Get("alias")
	if !bytes.Equal(stored, []byte("input")) {
		t.Errorf("Set should copy the value, got %s", stored)
	}

	if err := s.Set("empty", []byte{}); err != nil {
		t.Fatalf("Set of empty value failed: %v", err)
	}
	stored, exists, _ = s.Get("empty")
	if !exists || len(stored) != 0 {
		t.Errorf("Expected empty value to exist, got exists=%v value=%v", exists, stored)
	}
}

func testDelete(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	if err := s.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists, _ := s.Get("key"); exists {
		t.Errorf("Expected key to be gone after Delete")
	}
	if err := s.Delete("never-set"); err != nil {
		t.Errorf("Deleting a missing key should not fail, got %v", err)
	}
}

func testSynchronize(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	if err := s.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	synchronize(t, s)

	value, exists, err := s.Get("key")
	if err != nil || !exists || !bytes.Equal(value, []byte("value")) {
		t.Errorf("Expected value to survive Synchronize, got %s (exists=%v, err=%v)", value, exists, err)
	}

	// a second synchronize without changes must succeed as well
	synchronize(t, s)
}

func testRemoteChange(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	rec := newEventRecorder()
	cancel := s.Watch(rec.handle)
	defer cancel()

	if err := h.Remote("remote-key", []byte("remote-value")); err != nil {
		t.Fatalf("Remote write failed: %v", err)
	}

	if !rec.waitForKey("remote-key", eventTimeout) {
		t.Fatalf("Expected a change event for remote-key")
	}

	value, exists, err := s.Get("remote-key")
	if err != nil || !exists || !bytes.Equal(value, []byte("remote-value")) {
		t.Errorf("Expected remote value to be readable, got %s (exists=%v, err=%v)", value, exists, err)
	}
}

func testRemoteDelete(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	if err := s.Set("shared", []byte("local")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	synchronize(t, s)

	rec := newEventRecorder()
	cancel := s.Watch(rec.handle)
	defer cancel()

	if err := h.Remote("shared", nil); err != nil {
		t.Fatalf("Remote delete failed: %v", err)
	}
	if !rec.waitForKey("shared", eventTimeout) {
		t.Fatalf("Expected a change event for the remotely deleted key")
	}
	if _, exists, _ := s.Get("shared"); exists {
		t.Errorf("Expected key to be gone after remote delete")
	}
}

func testOwnWritesNotReported(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	rec := newEventRecorder()
	cancel := s.Watch(rec.handle)
	defer cancel()

	if err := s.Set("local-key", []byte("local")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete("local-deleted"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	synchronize(t, s)

	// a remote write acts as a barrier: once it arrived, earlier local events would have arrived too
	if err := h.Remote("barrier", []byte("x")); err != nil {
		t.Fatalf("Remote write failed: %v", err)
	}
	if !rec.waitForKey("barrier", eventTimeout) {
		t.Fatalf("Expected a change event for barrier")
	}

	if rec.sawKey("local-key") || rec.sawKey("local-deleted") {
		t.Errorf("Local writes must not be reported as remote changes")
	}
}

func testWatchCancel(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	cancelled := newEventRecorder()
	cancel := s.Watch(cancelled.handle)
	cancel()
	cancel() // idempotent

	active := newEventRecorder()
	stop := s.Watch(active.handle)
	defer stop()

	if err := h.Remote("after-cancel", []byte("x")); err != nil {
		t.Fatalf("Remote write failed: %v", err)
	}
	if !active.waitForKey("after-cancel", eventTimeout) {
		t.Fatalf("Expected the active watcher to see the change")
	}
	if cancelled.sawKey("after-cancel") {
		t.Errorf("Cancelled watcher must not receive events")
	}
}

// testGetInsideHandler reads the changed key from the handler, as observers of the facade do.
func testGetInsideHandler(t *testing.T, h Harness) {
	s := h.Store
	defer s.Close()

	type result struct {
		value  []byte
		exists bool
		err    error
	}
	results := make(chan result, 1)
	cancel := s.Watch(func(ev store.ChangeEvent) {
		for _, key := range ev.Keys {
			if key != "read-back" {
				continue
			}
			value, exists, err := s.Get(key)
			select {
			case results <- result{value, exists, err}:
			default:
			}
		}
	})
	defer cancel()

	start := time.Now()
	if err := h.Remote("read-back", []byte("fresh")); err != nil {
		t.Fatalf("Remote write failed after %s: %v", time.Since(start), err)
	}

	select {
	case r := <-results:
		if r.err != nil || !r.exists || !bytes.Equal(r.value, []byte("fresh")) {
			t.Errorf("Get inside the handler returned %q (exists=%v, err=%v), want fresh", r.value, r.exists, r.err)
		}
	case <-time.After(eventTimeout):
		t.Fatalf("Handler did not complete a Get within %s", eventTimeout)
	}
}
