package cloudsync

import (
	"bytes"
	"context"
	"math"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/ValentinKolb/cloudstorage/lib/store/lstore"
)

func newTestSync(t *testing.T) (*Sync, *lstore.Store) {
	t.Helper()
	backend := lstore.NewLocalStore(nil)
	s := New(backend)
	t.Cleanup(func() {
		_ = s.Close()
		_ = backend.Close()
	})
	return s, backend
}

func TestRoundTrip(t *testing.T) {
	s, _ := newTestSync(t)

	t.Run("Bool", func(t *testing.T) {
		for _, v := range []bool{true, false} {
			s.SetBool("bool", v)
			if got, ok := s.Bool("bool"); !ok || got != v {
				t.Errorf("Bool() = %v, %v; want %v, true", got, ok, v)
			}
		}
	})

	t.Run("Int", func(t *testing.T) {
		for _, v := range []int{0, 1, -1, 42, math.MaxInt64, math.MinInt64} {
			s.SetInt("int", v)
			if got, ok := s.Int("int"); !ok || got != v {
				t.Errorf("Int() = %v, %v; want %v, true", got, ok, v)
			}
		}
	})

	t.Run("Double", func(t *testing.T) {
		for _, v := range []float64{0, -0.5, math.Pi, math.MaxFloat64, math.Inf(-1)} {
			s.SetDouble("double", v)
			if got, ok := s.Double("double"); !ok || got != v {
				t.Errorf("Double() = %v, %v; want %v, true", got, ok, v)
			}
		}
	})

	t.Run("String", func(t *testing.T) {
		for _, v := range []string{"", "hello", "你好世界", strings.Repeat("x", 4096)} {
			s.SetString("string", v)
			if got, ok := s.String("string"); !ok || got != v {
				t.Errorf("String() = %q, %v; want %q, true", got, ok, v)
			}
		}
	})

	t.Run("URL", func(t *testing.T) {
		for _, raw := range []string{"https://example.com/path?q=1#frag", "file:///tmp/x", "relative/path"} {
			u, _ := url.Parse(raw)
			s.SetURL("url", u)
			got, ok := s.URL("url")
			if !ok || got.String() != raw {
				t.Errorf("URL() = %v, %v; want %s, true", got, ok, raw)
			}
		}
	})

	t.Run("Data", func(t *testing.T) {
		for _, v := range [][]byte{{}, {0}, []byte("payload"), {0xff, 0x00, 0x01}} {
			s.SetData("data", v)
			if got, ok := s.Data("data"); !ok || !bytes.Equal(got, v) {
				t.Errorf("Data() = %v, %v; want %v, true", got, ok, v)
			}
		}
	})
}

func TestMissingKey(t *testing.T) {
	s, backend := newTestSync(t)

	if _, ok := s.Bool("missing"); ok {
		t.Error("Bool() reported a value for a missing key")
	}
	if _, ok := s.Int("missing"); ok {
		t.Error("Int() reported a value for a missing key")
	}
	if _, ok := s.URL("missing"); ok {
		t.Error("URL() reported a value for a missing key")
	}
	if backend.Len() != 0 {
		t.Errorf("reading must not write, store holds %d keys", backend.Len())
	}
}

func TestTypeMismatchIsAbsent(t *testing.T) {
	s, backend := newTestSync(t)

	s.SetString("key", "text")
	if _, ok := s.Int("key"); ok {
		t.Error("Int() on a string value should be absent")
	}
	if _, ok := s.Data("key"); ok {
		t.Error("Data() on a string value should be absent")
	}

	// untagged and malformed values written by someone else
	backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{
		"empty":     {},
		"shortInt":  {byte(kindInt), 1, 2},
		"badBool":   {byte(kindBool), 7},
		"badURL":    append([]byte{byte(kindURL)}, []byte("http://[::1")...),
		"unknownTg": {0xee, 1},
	})
	if _, ok := s.String("empty"); ok {
		t.Error("empty value should be absent")
	}
	if _, ok := s.Int("shortInt"); ok {
		t.Error("truncated int should be absent")
	}
	if _, ok := s.Bool("badBool"); ok {
		t.Error("malformed bool should be absent")
	}
	if _, ok := s.URL("badURL"); ok {
		t.Error("unparsable URL should be absent")
	}
	if _, ok := s.Data("unknownTg"); ok {
		t.Error("unknown tag should be absent")
	}
}

func TestClearWithNil(t *testing.T) {
	s, backend := newTestSync(t)

	u, _ := url.Parse("https://example.com")
	s.SetURL("url", u)
	s.SetData("data", []byte("x"))
	s.SetURL("url", nil)
	s.SetData("data", nil)

	if backend.Len() != 0 {
		t.Errorf("expected nil writes to clear the keys, store holds %d keys", backend.Len())
	}

	s.SetString("s", "v")
	s.Remove("s")
	if _, ok := s.String("s"); ok {
		t.Error("Remove() did not clear the key")
	}
}

func TestObservers(t *testing.T) {
	t.Run("RemoteChangeNotifies", func(t *testing.T) {
		s, backend := newTestSync(t)

		var calls atomic.Int32
		s.AddObserver("key", func() { calls.Add(1) })

		backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"key": encodeInt(1), "other": encodeInt(2)})
		if calls.Load() != 1 {
			t.Errorf("expected 1 notification, got %d", calls.Load())
		}
	})

	t.Run("LocalWriteDoesNotNotify", func(t *testing.T) {
		s, _ := newTestSync(t)

		var calls atomic.Int32
		s.AddObserver("key", func() { calls.Add(1) })
		s.SetInt("key", 1)
		if calls.Load() != 0 {
			t.Errorf("expected no notification for own write, got %d", calls.Load())
		}
	})

	t.Run("LastRegistrationWins", func(t *testing.T) {
		s, backend := newTestSync(t)

		var first, second atomic.Int32
		t1 := s.AddObserver("key", func() { first.Add(1) })
		s.AddObserver("key", func() { second.Add(1) })

		backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"key": encodeInt(1)})
		if first.Load() != 0 || second.Load() != 1 {
			t.Errorf("expected only the second observer to be notified, got first=%d second=%d", first.Load(), second.Load())
		}

		// removing the replaced token must not remove the newer registration
		s.RemoveObserver(t1)
		backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"key": encodeInt(2)})
		if second.Load() != 2 {
			t.Errorf("expected second observer to stay registered, got %d notifications", second.Load())
		}
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		s, backend := newTestSync(t)

		var calls atomic.Int32
		token := s.AddObserver("key", func() { calls.Add(1) })
		s.RemoveObserver(token)
		s.RemoveObserver(token)
		s.RemoveObserver(Token(0))
		s.RemoveObserver(Token(12345))

		backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"key": encodeInt(1)})
		if calls.Load() != 0 {
			t.Errorf("expected no notification after removal, got %d", calls.Load())
		}
		if s.observers.len() != 0 {
			t.Errorf("expected empty registry, got %d entries", s.observers.len())
		}
	})

	t.Run("ClosedFacadeIgnoresChanges", func(t *testing.T) {
		s, backend := newTestSync(t)

		var calls atomic.Int32
		s.AddObserver("key", func() { calls.Add(1) })
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		backend.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"key": encodeInt(1)})
		if calls.Load() != 0 {
			t.Errorf("expected no notification after Close, got %d", calls.Load())
		}
	})
}

// blockingStore is a local store whose Synchronize waits until release is closed.
type blockingStore struct {
	*lstore.Store
	release chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (b *blockingStore) Synchronize(ctx context.Context) error {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.Store.Synchronize(ctx)
}

func TestSynchronizeCoalesces(t *testing.T) {
	backend := &blockingStore{
		Store:   lstore.NewLocalStore(nil),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	s := New(backend)

	s.Synchronize()
	<-backend.started

	// the first run is blocked, these calls fold into one follow-up run
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Synchronize()
		}()
	}
	wg.Wait()
	close(backend.release)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if n := backend.calls.Load(); n != 2 {
		t.Errorf("expected 2 store synchronisations, got %d", n)
	}
	if n := backend.SyncCount(); n != 2 {
		t.Errorf("expected 2 completed synchronisations, got %d", n)
	}
}

func TestSynchronizeEventuallyRuns(t *testing.T) {
	s, backend := newTestSync(t)

	s.Synchronize()
	deadline := time.Now().Add(5 * time.Second)
	for backend.SyncCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("background synchronisation did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSynchronizeAfterClose(t *testing.T) {
	s, backend := newTestSync(t)
	_ = s.Close()

	s.Synchronize()
	s.Synchronize()
	if backend.SyncCount() != 0 {
		t.Errorf("expected no synchronisation after Close, got %d", backend.SyncCount())
	}
}

func TestSynchronizeContextError(t *testing.T) {
	backend := lstore.NewLocalStore(nil)
	s := New(backend)
	defer s.Close()
	_ = backend.Close()

	if err := s.SynchronizeContext(context.Background()); err == nil {
		t.Error("expected error from a closed store")
	}
}

func TestStoreErrors(t *testing.T) {
	backend := lstore.NewLocalStore(&lstore.Options{MaxValueBytes: 4})
	s := New(backend)
	defer s.Close()

	if err := s.SetString("big", "this value exceeds the quota"); err == nil {
		t.Error("expected the rejected write to return the store error")
	}
	if _, ok := s.String("big"); ok {
		t.Error("rejected write should leave the key absent")
	}

	_ = backend.Close()
	if _, ok := s.Int("any"); ok {
		t.Error("read from a closed store should be absent")
	}
	if err := s.SetURL("any", nil); err == nil {
		t.Error("expected clearing a key of a closed store to fail")
	}
}

func TestWritePrometheus(t *testing.T) {
	s, _ := newTestSync(t)

	s.AddObserver("key", func() {})
	s.SetInt("key", 1)
	s.Int("key")
	s.String("key")

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		"cloudsync_writes_total 1",
		"cloudsync_reads_total 2",
		"cloudsync_type_mismatch_total 1",
		"cloudsync_observers 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output does not contain %q:\n%s", want, out)
		}
	}
}
