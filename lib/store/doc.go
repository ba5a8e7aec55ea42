// Package store defines the contract of the synchronised key-value store that
// the cloudsync facade and the cloudstorage bindings sit on top of. The store
// owns persistence and propagation between devices; this package only fixes the
// shape of that service so that backends are interchangeable.
//
// The package focuses on:
//   - A unified interface (IStore) for get/set/delete, synchronisation and change watching
//   - A change event model (ChangeEvent, ChangeReason) for changes made elsewhere
//   - Unified error reporting with typed return codes
//
// Key Components:
//
//   - IStore Interface: Values are opaque byte slices. Synchronize is the
//     explicit flush/pull point; Watch delivers changes that did not originate
//     from the same IStore instance.
//
//   - Error System: A structured error reporting mechanism using typed error codes
//     and descriptive messages. This system allows callers to make informed
//     decisions based on specific error conditions rather than generic errors.
//
// Implementations:
//
//	- Local Store (lstore): An in-process store backed by a concurrent map.
//	  Remote changes can be injected, which makes it the backend of choice for
//	  tests and single-process use.
//	  Available in the "github.com/ValentinKolb/cloudstorage/lib/store/lstore" package.
//
//	- File Store (fstore): Keeps all values in one JSON document, for example in
//	  a folder that a file sync service replicates between devices. Writes are
//	  flushed on Synchronize; external modifications are picked up with fsnotify.
//	  Available in the "github.com/ValentinKolb/cloudstorage/lib/store/fstore" package.
//
//	- Redis Store (rstore): Values live in Redis, change announcements travel
//	  over a pub/sub channel.
//	  Available in the "github.com/ValentinKolb/cloudstorage/lib/store/rstore" package.
//
//	- Distributed Store (dstore): Every device runs a replica of a RAFT group
//	  (Dragonboat). Entries applied from other replicas are reported as changes.
//	  Available in the "github.com/ValentinKolb/cloudstorage/lib/store/dstore" package.
//
// All implementations run the shared conformance suite in lib/store/testing.
package store
