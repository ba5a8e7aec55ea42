package dstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/ValentinKolb/cloudstorage/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// KVStateMachine is a state machine implementation for Dragonboat RAFT.
// It holds the replicated map and reports entries proposed by other replicas to notify.
//
// notify is called on the apply path. It must not block and must not read from
// the replica (a SyncRead waits for the entry that is being applied).
type KVStateMachine struct {
	replicaID   uint64
	shardID     uint64
	data        *xsync.MapOf[string, []byte]
	notify      func(store.ChangeEvent)
	lastApplied atomic.Uint64
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// All state machines created by the factory report remote changes to notify, usually store.EventQueue.Push.
func CreateStateMachineFactory(notify func(store.ChangeEvent)) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			data:      xsync.NewMapOf[string, []byte](),
			notify:    notify,
		}
	}
}

// Lookup handles read-only queries.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTGet:
		val, ok := fsm.data.Load(q.Key)
		if !ok {
			return internal.QueryResult{}, nil
		}
		c := make([]byte, len(val))
		copy(c, val)
		return internal.QueryResult{Value: c, Ok: true}, nil
	case internal.QueryTSync:
		return fsm.lastApplied.Load(), nil
	case internal.QueryTLen:
		return fsm.data.Size(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %s", q.Type))
	}
}

// Update applies write commands to the map.
// All write operations are serialized into []byte and are accessible via the entries struct
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	var remote []string
	cmd := internal.Command{}
	for idx, e := range entries {
		fsm.lastApplied.Store(e.Index)

		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
			continue
		}

		var changed bool
		switch cmd.Type {
		case internal.CommandTSet:
			// cmd.Value is reused by the next Deserialize
			value := make([]byte, len(cmd.Value))
			copy(value, cmd.Value)
			old, loaded := fsm.data.LoadAndStore(cmd.Key, value)
			changed = !loaded || !bytes.Equal(old, value)
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  []byte(fmt.Sprintf("set: key=%s", cmd.Key)),
			}
		case internal.CommandTDelete:
			_, changed = fsm.data.LoadAndDelete(cmd.Key)
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCSuccess),
				Data:  []byte(fmt.Sprintf("deleted key=%s", cmd.Key)),
			}
		default:
			entries[idx].Result = sm.Result{
				Value: uint64(store.RetCInvalidOperation),
				Data:  []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type)),
			}
			continue
		}

		if changed && cmd.Origin != fsm.replicaID {
			remote = append(remote, cmd.Key)
		}
	}

	if len(remote) > 0 {
		fsm.notify(store.ChangeEvent{Reason: store.ChangeReasonServerChange, Keys: remote})
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// --------------------------------------------------------------------------
// Snapshots
// --------------------------------------------------------------------------

// snapshotEntry is one key-value pair captured by PrepareSnapshot.
type snapshotEntry struct {
	key   string
	value []byte
}

// PrepareSnapshot captures the current content of the map.
// Values are never modified in place, so sharing the slices is safe.
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	entries := make([]snapshotEntry, 0, fsm.data.Size())
	fsm.data.Range(func(key string, value []byte) bool {
		entries = append(entries, snapshotEntry{key: key, value: value})
		return true
	})
	return entries, nil
}

// SaveSnapshot writes the captured entries to the writer with the format:
// 8 bytes entry count, then per entry 4 bytes key length, key, 4 bytes value length, value.
func (fsm *KVStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, done <-chan struct{}) error {
	entries, ok := ctx.([]snapshotEntry)
	if !ok {
		return fmt.Errorf("invalid snapshot context: %T", ctx)
	}

	w := bufio.NewWriter(writer)
	var header [8]byte

	binary.BigEndian.PutUint64(header[:], uint64(len(entries)))
	if _, err := w.Write(header[:8]); err != nil {
		return err
	}

	for i, e := range entries {
		if i%1024 == 0 {
			select {
			case <-done:
				return sm.ErrSnapshotStopped
			default:
			}
		}
		binary.BigEndian.PutUint32(header[:4], uint32(len(e.key)))
		if _, err := w.Write(header[:4]); err != nil {
			return err
		}
		if _, err := w.WriteString(e.key); err != nil {
			return err
		}
		binary.BigEndian.PutUint32(header[:4], uint32(len(e.value)))
		if _, err := w.Write(header[:4]); err != nil {
			return err
		}
		if _, err := w.Write(e.value); err != nil {
			return err
		}
	}
	return w.Flush()
}

// RecoverFromSnapshot replaces the map with the snapshot content.
// Keys whose value differs from the previous content are reported with reason InitialSync.
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, done <-chan struct{}) error {
	reader := bufio.NewReader(r)
	var header [8]byte

	if _, err := io.ReadFull(reader, header[:8]); err != nil {
		return fmt.Errorf("failed to read snapshot header: %w", err)
	}
	count := binary.BigEndian.Uint64(header[:8])

	recovered := make(map[string][]byte, count)
	for i := uint64(0); i < count; i++ {
		if i%1024 == 0 {
			select {
			case <-done:
				return sm.ErrSnapshotStopped
			default:
			}
		}
		key, err := readChunk(reader, header[:4])
		if err != nil {
			return fmt.Errorf("failed to read key %d of snapshot: %w", i, err)
		}
		value, err := readChunk(reader, header[:4])
		if err != nil {
			return fmt.Errorf("failed to read value %d of snapshot: %w", i, err)
		}
		recovered[string(key)] = value
	}

	var changed []string
	fsm.data.Range(func(key string, _ []byte) bool {
		if _, ok := recovered[key]; !ok {
			fsm.data.Delete(key)
			changed = append(changed, key)
		}
		return true
	})
	for key, value := range recovered {
		old, loaded := fsm.data.LoadAndStore(key, value)
		if !loaded || !bytes.Equal(old, value) {
			changed = append(changed, key)
		}
	}

	if len(changed) > 0 {
		fsm.notify(store.ChangeEvent{Reason: store.ChangeReasonInitialSync, Keys: changed})
	}
	return nil
}

// readChunk reads a length prefixed byte slice.
func readChunk(r io.Reader, lenBuf []byte) ([]byte, error) {
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	buf := make([]byte, binary.BigEndian.Uint32(lenBuf))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close performs any necessary cleanup.
func (fsm *KVStateMachine) Close() error {
	fsm.data.Clear()
	return nil
}
