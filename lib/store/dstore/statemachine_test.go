package dstore

import (
	"bytes"
	"sync"
	"testing"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/ValentinKolb/cloudstorage/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// recorder collects the events delivered to a watcher.
type recorder struct {
	mu     sync.Mutex
	events []store.ChangeEvent
}

func (r *recorder) handle(e store.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []store.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.ChangeEvent(nil), r.events...)
}

func newTestStateMachine(t *testing.T, replicaID uint64) (*KVStateMachine, *recorder) {
	t.Helper()
	rec := &recorder{}
	fsm := CreateStateMachineFactory(rec.handle)(1, replicaID).(*KVStateMachine)
	return fsm, rec
}

func entry(index uint64, cmd internal.Command) sm.Entry {
	return sm.Entry{Index: index, Cmd: cmd.Serialize()}
}

func get(t *testing.T, fsm *KVStateMachine, key string) ([]byte, bool) {
	t.Helper()
	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: key})
	if err != nil {
		t.Fatalf("Lookup(%s) failed: %v", key, err)
	}
	r := res.(internal.QueryResult)
	return r.Value, r.Ok
}

func TestUpdate(t *testing.T) {
	fsm, rec := newTestStateMachine(t, 1)

	entries := []sm.Entry{
		entry(1, internal.Command{Type: internal.CommandTSet, Origin: 1, Key: "own", Value: []byte("a")}),
		entry(2, internal.Command{Type: internal.CommandTSet, Origin: 2, Key: "foreign", Value: []byte("b")}),
		entry(3, internal.Command{Type: internal.CommandTDelete, Origin: 2, Key: "missing"}),
	}
	res, err := fsm.Update(entries)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	for i, e := range res {
		if e.Result.Value != uint64(store.RetCSuccess) {
			t.Errorf("entry %d: expected success, got %d (%s)", i, e.Result.Value, e.Result.Data)
		}
	}

	if v, ok := get(t, fsm, "own"); !ok || !bytes.Equal(v, []byte("a")) {
		t.Errorf("expected own=a, got %q (found=%v)", v, ok)
	}
	if v, ok := get(t, fsm, "foreign"); !ok || !bytes.Equal(v, []byte("b")) {
		t.Errorf("expected foreign=b, got %q (found=%v)", v, ok)
	}

	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Reason != store.ChangeReasonServerChange {
		t.Errorf("expected ServerChange, got %s", events[0].Reason)
	}
	if len(events[0].Keys) != 1 || events[0].Keys[0] != "foreign" {
		t.Errorf("expected only key 'foreign' to be reported, got %v", events[0].Keys)
	}

	if idx, _ := fsm.Lookup(internal.Query{Type: internal.QueryTSync}); idx.(uint64) != 3 {
		t.Errorf("expected last applied index 3, got %v", idx)
	}
}

func TestUpdateUnchangedValueNotReported(t *testing.T) {
	fsm, rec := newTestStateMachine(t, 1)

	cmd := internal.Command{Type: internal.CommandTSet, Origin: 2, Key: "k", Value: []byte("v")}
	if _, err := fsm.Update([]sm.Entry{entry(1, cmd)}); err != nil {
		t.Fatal(err)
	}
	if _, err := fsm.Update([]sm.Entry{entry(2, cmd)}); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.all()); n != 1 {
		t.Errorf("expected 1 event for two identical writes, got %d", n)
	}
}

func TestUpdateInvalidEntries(t *testing.T) {
	fsm, rec := newTestStateMachine(t, 1)

	res, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: nil},
		{Index: 2, Cmd: []byte{1, 2}},
		entry(3, internal.Command{Type: internal.CommandType(42), Origin: 2, Key: "k"}),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	want := []store.RetCode{store.RetCInvalidOperation, store.RetCInternalError, store.RetCInvalidOperation}
	for i, code := range want {
		if res[i].Result.Value != uint64(code) {
			t.Errorf("entry %d: expected %s, got %s", i, code, store.RetCode(res[i].Result.Value))
		}
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}
}

func TestLookupInvalidQuery(t *testing.T) {
	fsm, _ := newTestStateMachine(t, 1)

	if _, err := fsm.Lookup("not a query"); err == nil {
		t.Error("expected error for invalid query type")
	}
	if _, err := fsm.Lookup(internal.Query{Type: internal.QueryType(99)}); err == nil {
		t.Error("expected error for unknown query")
	}
}

func TestSnapshot(t *testing.T) {
	src, _ := newTestStateMachine(t, 1)
	_, err := src.Update([]sm.Entry{
		entry(1, internal.Command{Type: internal.CommandTSet, Origin: 1, Key: "a", Value: []byte("1")}),
		entry(2, internal.Command{Type: internal.CommandTSet, Origin: 1, Key: "b", Value: []byte{}}),
		entry(3, internal.Command{Type: internal.CommandTSet, Origin: 1, Key: "c", Value: []byte("3")}),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := src.PrepareSnapshot()
	if err != nil {
		t.Fatalf("PrepareSnapshot failed: %v", err)
	}
	var buf bytes.Buffer
	if err := src.SaveSnapshot(ctx, &buf, nil, make(chan struct{})); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// the target already has "c" with the same value and a stale key "d"
	dst, rec := newTestStateMachine(t, 2)
	_, err = dst.Update([]sm.Entry{
		entry(1, internal.Command{Type: internal.CommandTSet, Origin: 2, Key: "c", Value: []byte("3")}),
		entry(2, internal.Command{Type: internal.CommandTSet, Origin: 2, Key: "d", Value: []byte("4")}),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := dst.RecoverFromSnapshot(&buf, nil, make(chan struct{})); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}

	for key, want := range map[string]string{"a": "1", "b": "", "c": "3"} {
		if v, ok := get(t, dst, key); !ok || string(v) != want {
			t.Errorf("key %s: expected %q, got %q (found=%v)", key, want, v, ok)
		}
	}
	if _, ok := get(t, dst, "d"); ok {
		t.Error("expected key d to be removed by the snapshot")
	}

	events := rec.all()
	if len(events) != 1 || events[0].Reason != store.ChangeReasonInitialSync {
		t.Fatalf("expected one InitialSync event, got %v", events)
	}
	reported := map[string]bool{}
	for _, k := range events[0].Keys {
		reported[k] = true
	}
	if len(reported) != 3 || !reported["a"] || !reported["b"] || !reported["d"] {
		t.Errorf("expected keys a, b and d to be reported, got %v", events[0].Keys)
	}
}

func TestRecoverFromTruncatedSnapshot(t *testing.T) {
	fsm, _ := newTestStateMachine(t, 1)

	if err := fsm.RecoverFromSnapshot(bytes.NewReader([]byte{0, 0, 0}), nil, nil); err == nil {
		t.Error("expected error for truncated header")
	}
	// claims one entry but contains none
	if err := fsm.RecoverFromSnapshot(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 1}), nil, nil); err == nil {
		t.Error("expected error for missing entry")
	}
}
