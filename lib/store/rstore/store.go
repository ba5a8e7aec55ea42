package rstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var log = logger.GetLogger("rstore")

const (
	defaultKeyPrefix = "cloudstorage:"
	defaultTimeout   = 5 * time.Second
)

// Config contains configuration options for the Redis store.
type Config struct {
	// Client is the Redis client to use. If nil, a client for localhost:6379 is created.
	// The store takes ownership and closes the client in Close.
	Client redis.UniversalClient
	// KeyPrefix is prepended to all Redis keys used by the store.
	// Defaults to "cloudstorage:" if empty.
	KeyPrefix string
	// Timeout bounds every single Redis round trip. Defaults to 5 seconds.
	Timeout time.Duration
}

// announcement is published on the change channel for every write.
type announcement struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// Store is a Redis-backed store.IStore.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	channel   string
	origin    string
	timeout   time.Duration
	watchers  *store.Watchers

	pubsub *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a new Redis-backed store and subscribes to the change channel.
// It returns once the subscription is confirmed by the server.
func New(config Config) (*Store, error) {
	client := config.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr: "localhost:6379",
		})
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	s := &Store{
		client:    client,
		keyPrefix: keyPrefix,
		channel:   keyPrefix + "changes",
		origin:    uuid.NewString(),
		timeout:   timeout,
		watchers:  store.NewWatchers(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pubsub = client.Subscribe(ctx, s.channel)

	// wait for the subscription to be active, otherwise early announcements are lost
	confirmCtx, confirmCancel := context.WithTimeout(ctx, timeout)
	defer confirmCancel()
	if _, err := s.pubsub.Receive(confirmCtx); err != nil {
		cancel()
		_ = s.pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	s.wg.Add(1)
	go s.receive(s.pubsub.Channel())

	return s, nil
}

// redisKey constructs the Redis key for a store key.
func (s *Store) redisKey(key string) string {
	return s.keyPrefix + "kv:" + key
}

// receive delivers announcements of other origins to the watchers.
func (s *Store) receive(messages <-chan *redis.Message) {
	defer s.wg.Done()

	for msg := range messages {
		var a announcement
		if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
			log.Warningf("skipping malformed announcement on %s: %v", s.channel, err)
			continue
		}
		if a.Origin == s.origin {
			continue
		}
		s.watchers.Notify(store.ChangeEvent{Reason: store.ChangeReasonServerChange, Keys: a.Keys})
	}
}

// announce returns the payload published for a write of keys.
func (s *Store) announce(keys ...string) (string, error) {
	payload, err := json.Marshal(announcement{Origin: s.origin, Keys: keys})
	if err != nil {
		return "", store.NewError(store.RetCInternalError, fmt.Sprintf("failed to encode announcement: %v", err))
	}
	return string(payload), nil
}

// toStoreError converts a go-redis error into a *store.Error.
func toStoreError(op, key string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return store.NewError(store.RetCClosed, "store is closed")
	}
	return store.NewError(store.RetCInternalError, fmt.Sprintf("%s %s: %v", op, key, err))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, toStoreError("get", key, err)
	}
	return val, true, nil
}

func (s *Store) Set(key string, value []byte) error {
	payload, err := s.announce(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.redisKey(key), value, 0)
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	if err != nil {
		return toStoreError("set", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	payload, err := s.announce(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.redisKey(key))
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	if err != nil {
		return toStoreError("delete", key, err)
	}
	return nil
}

// Synchronize checks that the server is reachable. Writes are applied by Redis immediately.
func (s *Store) Synchronize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return toStoreError("ping", s.keyPrefix, err)
	}
	return nil
}

func (s *Store) Watch(handler store.ChangeHandler) func() {
	return s.watchers.Add(handler)
}

// Close ends the subscription and closes the Redis client.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if cerr := s.pubsub.Close(); cerr != nil {
			log.Debugf("closing subscription: %v", cerr)
		}
		s.wg.Wait()
		s.watchers.Clear()
		err = s.client.Close()
	})
	return err
}

// Keys returns all store keys currently held in Redis. It scans the key space
// and is meant for diagnostics, not for hot paths.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	prefix := s.redisKey("")
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, toStoreError("scan", prefix, err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
