// Package fstore implements store.IStore on top of a single JSON document on
// disk. Placing the document in a folder that a file sync service replicates
// (a network share, a synced home directory, ...) turns it into a simple
// multi-device store: every process that opens the same path sees the others'
// values after they synchronise.
//
// Implementation Details:
//
//   - Buffered Writes: Set and Delete only change the in-memory view and mark
//     the key as pending. Synchronize merges the current document from disk
//     and writes the result atomically (temporary file + rename).
//
//   - Change Detection: The parent directory is watched with fsnotify. When the
//     document changes, it is reloaded and compared with the last known disk
//     state. Keys that differ and have no pending local write are applied and
//     reported to watchers. Writes of this instance never show up as changes
//     because the last known disk state is updated when they are written.
//
//   - Conflicts: A key written locally and remotely between two
//     synchronisations keeps the local value (last writer wins on flush).
//
// Thread Safety:
//
//	All methods are thread-safe. Handlers are invoked from the watcher goroutine.
package fstore
