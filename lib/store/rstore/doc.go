// Package rstore implements store.IStore on top of Redis.
//
// Values are plain Redis strings below a key prefix. Every Set and Delete is
// sent together with a PUBLISH on a change channel in one MULTI/EXEC
// transaction. The announcement carries the origin id of the writing Store
// (a random UUID per instance); every Store subscribes to the channel and
// reports announcements from other origins to its watchers.
//
// Synchronize only verifies connectivity: Redis applies writes immediately,
// so there is nothing to flush.
//
// Usage Example:
//
//	s, err := rstore.New(rstore.Config{
//	    Client:    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    KeyPrefix: "myapp:",
//	})
//	if err != nil {
//	    // handle error
//	}
//	defer s.Close()
package rstore
