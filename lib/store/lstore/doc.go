// Package lstore implements a local, in-memory, single-process key-value store
// based on the store.IStore interface. Data is stored entirely in memory and is
// not persisted between process restarts.
//
// Key Features:
//   - Pure in-memory storage backed by an xsync.MapOf
//   - Optional quota (number of keys, bytes per value) reported as RetCQuotaExceeded
//   - Injection of remote changes to exercise change handling without a network
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Copy Semantics: Set and Get copy the value so that callers can never
//     mutate stored data through an aliased slice.
//
//   - Remote Changes: Writes through Set are local and never reported to
//     watchers. InjectRemote applies a batch of values and reports their keys,
//     the same way a synced backend reports a download from another device.
//
// Usage Example:
//
//	s := lstore.NewLocalStore(nil)
//	_ = s.Set("flag", []byte{1})
//
//	cancel := s.Watch(func(ev store.ChangeEvent) {
//	    fmt.Println("changed elsewhere:", ev.Keys)
//	})
//	defer cancel()
//
//	s.InjectRemote(store.ChangeReasonServerChange, map[string][]byte{"flag": {0}})
//
// Suitable Use Cases:
//
//	- Tests of code built on store.IStore or cloudsync
//	- Single-process applications that want the binding API without syncing
package lstore
