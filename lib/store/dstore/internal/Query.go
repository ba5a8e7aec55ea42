package internal

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet  QueryType = iota // Retrieve an entry by key.
	QueryTSync                  // Barrier: returns once the replica applied everything committed before the read.
	QueryTLen                   // Number of stored keys.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTSync:
		return "Sync"
	case QueryTLen:
		return "Len"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead
type Query struct {
	Type QueryType // The type of Query to perform.
	Key  string    // The key for the Query (empty for Sync and Len).
}

// QueryResult is the result of a QueryTGet operation.
// QueryTSync returns the applied log index (uint64), QueryTLen an int.
type QueryResult struct {
	Ok    bool
	Value []byte
}
