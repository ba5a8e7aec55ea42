package dstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/common"
	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/ValentinKolb/cloudstorage/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	retries = 10
	log     = logger.GetLogger("dstore")
)

// Store is a store.IStore backed by one replica of a RAFT group.
// Every device runs its own replica; entries applied from other replicas are
// reported to the watchers from the goroutine of an EventQueue, never from the apply path.
type Store struct {
	nh        *dragonboat.NodeHost
	shardID   uint64
	replicaID uint64
	cs        *client.Session
	timeout   time.Duration
	watchers  *store.Watchers
	events    *store.EventQueue
	closed    atomic.Bool

	registry gometrics.Registry
	proposes gometrics.Timer
	reads    gometrics.Timer
	retried  gometrics.Counter
	failed   gometrics.Counter
}

// Start creates the node host and starts the local replica described by cfg.
// The call does not wait for a leader; operations retry until the shard is ready.
func Start(cfg common.RaftConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nh, err := dragonboat.NewNodeHost(cfg.ToNodeHostConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create node host: %w", err)
	}

	watchers := store.NewWatchers()
	events := store.NewEventQueue(watchers)
	notify := func(e store.ChangeEvent) { events.Push(e) }

	// a joining replica must not pass the initial members
	members := cfg.ClusterMembers
	if cfg.Join {
		members = map[uint64]string{}
	}

	if err := nh.StartConcurrentReplica(members, cfg.Join, CreateStateMachineFactory(notify), cfg.ToDragonboatConfig()); err != nil {
		nh.Close()
		events.Close()
		return nil, fmt.Errorf("failed to start replica: %w", err)
	}

	registry := gometrics.NewRegistry()
	s := &Store{
		nh:        nh,
		shardID:   cfg.ShardID,
		replicaID: cfg.ReplicaID,
		cs:        nh.GetNoOPSession(cfg.ShardID),
		timeout:   cfg.Timeout(),
		watchers:  watchers,
		events:    events,
		registry:  registry,
		proposes:  gometrics.NewRegisteredTimer("dstore.propose", registry),
		reads:     gometrics.NewRegisteredTimer("dstore.read", registry),
		retried:   gometrics.NewRegisteredCounter("dstore.retries", registry),
		failed:    gometrics.NewRegisteredCounter("dstore.failures", registry),
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	log.Infof("replica %d of shard %d started on %s", cfg.ReplicaID, cfg.ShardID, cfg.ClusterMembers[cfg.ReplicaID])
	return s, nil
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// retryable reports whether err is a transient dragonboat error.
func retryable(err error) bool {
	return errors.Is(err, dragonboat.ErrSystemBusy) ||
		errors.Is(err, dragonboat.ErrShardNotReady) ||
		errors.Is(err, dragonboat.ErrTimeout)
}

// write serializes a Command and sends it via SyncPropose.
// It returns a *store.Error if an error occurs, or nil on success.
func (s *Store) write(cmd internal.Command) error {
	if s.closed.Load() {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	defer s.proposes.UpdateSince(time.Now())

	data := cmd.Serialize()
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := s.nh.SyncPropose(ctx, s.cs, data)
		cancel()

		if retryable(err) && !s.closed.Load() {
			s.retried.Inc(1)
			log.Infof("SyncPropose: %v, retrying (%d/%d)...", err, i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			s.failed.Inc(1)
			return store.NewError(store.RetCInternalError, err.Error())
		}
		if res.Value != uint64(store.RetCSuccess) {
			s.failed.Inc(1)
			return store.NewError(store.RetCode(res.Value), string(res.Data))
		}
		return nil
	}
	s.failed.Inc(1)
	return store.NewError(store.RetCInternalError, "timeout")
}

// read is a generic helper function that queries the state machine
// and attempts to convert the response into the expected type R.
//
// It uses SyncRead so that the local replica has applied every entry committed
// before the read started. Transient errors are retried.
func read[R any](ctx context.Context, s *Store, q internal.Query) (R, error) {
	var zero R
	if s.closed.Load() {
		return zero, store.NewError(store.RetCClosed, "store is closed")
	}
	defer s.reads.UpdateSince(time.Now())

	for i := 0; i < retries; i++ {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		res, err := s.nh.SyncRead(rctx, s.shardID, q)
		cancel()

		if retryable(err) && ctx.Err() == nil && !s.closed.Load() {
			s.retried.Inc(1)
			log.Infof("SyncRead: %v, retrying (%d/%d)...", err, i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			s.failed.Inc(1)
			var se *store.Error
			if errors.As(err, &se) {
				return zero, se
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	s.failed.Inc(1)
	return zero, store.NewError(store.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](context.Background(), s, internal.Query{
		Type: internal.QueryTGet,
		Key:  key,
	})
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *Store) Set(key string, value []byte) error {
	return s.write(internal.Command{
		Type:   internal.CommandTSet,
		Origin: s.replicaID,
		Key:    key,
		Value:  value,
	})
}

func (s *Store) Delete(key string) error {
	return s.write(internal.Command{
		Type:   internal.CommandTDelete,
		Origin: s.replicaID,
		Key:    key,
	})
}

func (s *Store) Synchronize(ctx context.Context) error {
	index, err := read[uint64](ctx, s, internal.Query{Type: internal.QueryTSync})
	if err != nil {
		return err
	}
	log.Debugf("synchronized replica %d at index %d", s.replicaID, index)
	return nil
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	return s.watchers.Add(handler)
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.watchers.Clear()
	s.nh.Close()
	s.events.Close()
	return nil
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Len returns the number of keys held by the replicated map.
func (s *Store) Len(ctx context.Context) (int, error) {
	return read[int](ctx, s, internal.Query{Type: internal.QueryTLen})
}

// ReplicaID returns the id of the local replica.
func (s *Store) ReplicaID() uint64 {
	return s.replicaID
}

// WriteMetrics writes a human readable summary of the proposal and read statistics to w.
func (s *Store) WriteMetrics(w io.Writer) {
	gometrics.WriteOnce(s.registry, w)
}
