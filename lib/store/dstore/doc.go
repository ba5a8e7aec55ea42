// Package dstore implements a replicated store.IStore using the Dragonboat RAFT
// consensus library. Every device runs one replica of the same RAFT group; a
// value written on one device is committed by the group and applied by every
// replica.
//
// Architecture:
//
// The dstore implementation consists of three main components:
//
//   - Store Client: Implements the store.IStore interface. It serializes writes
//     into commands, proposes them to the consensus layer and queries the local
//     replica for reads.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine that holds the replicated
//     map. Every command carries the id of the proposing replica; entries proposed
//     by other replicas are reported to the watchers of the local store as
//     ServerChange events. Keys changed by recovering a snapshot are reported as
//     InitialSync.
//
//   - Communication Protocol: Defined in the internal package, this consists of Command
//     and Query structures with serialization logic for transmitting operations across
//     the network.
//
// Consistency:
//
//	Writes return once the entry is committed by a majority of the group.
//	Get and Synchronize use Dragonboat's SyncRead, so the local replica has
//	applied every entry committed before the call. Synchronize is therefore a
//	read barrier and does not move any data itself.
//
// Error Handling:
//
//	Transient errors (system busy, shard not ready, timeout) are retried a few times.
//	All other errors are returned as *store.Error.
//
// Metrics:
//
//	Proposal and read latencies, retries and failures are recorded in a
//	go-metrics registry that is available via Store.Metrics.
//
// Usage Example:
//
//	s, err := dstore.Start(common.RaftConfig{
//		ShardID:        1,
//		ReplicaID:      common.HashString("laptop"),
//		ClusterMembers: members,
//		RTTMillisecond: 100,
//		DataDir:        "/var/lib/cloudstorage",
//		TimeoutSecond:  5,
//	})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package dstore
