// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the format used to transmit operations
// between the store client and the replicated state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (Set, Delete) that modify the
//     replicated map. Commands are serialized and proposed to the RAFT group,
//     applied by the state machine of every replica, and carry the id of the
//     proposing replica so that other replicas can report them as remote changes.
//
//   - Query System: Defines read operations (Get, Sync, Len). Queries are executed
//     locally on the state machine and therefore do not require serialization.
//
// Command Format:
//
//	- 1 byte: Command type (Set, Delete)
//	- 8 bytes: Origin replica id (uint64, big endian)
//	- 4 bytes: Key length (uint32, big endian)
//	- N bytes: Key data (string as byte array)
//	- M bytes: Value data (only present for Set)
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization. The RAFT protocol
//	ensures sequential processing of commands on the state machine.
package internal
