package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/cloudstorage/lib/common"
	"github.com/ValentinKolb/cloudstorage/lib/store"
	"github.com/ValentinKolb/cloudstorage/lib/store/dstore"
	"github.com/ValentinKolb/cloudstorage/lib/store/fstore"
	"github.com/ValentinKolb/cloudstorage/lib/store/lstore"
	"github.com/ValentinKolb/cloudstorage/lib/store/rstore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags and configuration
// --------------------------------------------------------------------------

// SetupStoreFlags adds the backend and logging flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "backend"
	flags.String(key, "memory", WrapString("The store backend to use (memory, file, redis, raft). The memory backend lives only as long as the process"))

	// file
	key = "file-path"
	flags.String(key, "cloudstorage.json", WrapString("(file backend) Path of the JSON document holding all values, e.g. inside a synced folder"))

	// redis
	key = "redis-address"
	flags.String(key, "localhost:6379", WrapString("(redis backend) Address of the Redis server"))
	key = "redis-password"
	flags.String(key, "", WrapString("(redis backend) Password of the Redis server"))
	key = "redis-db"
	flags.Int(key, 0, WrapString("(redis backend) Redis database number"))
	key = "redis-key-prefix"
	flags.String(key, "cloudstorage:", WrapString("(redis backend) Prefix of all Redis keys and of the change channel"))
	key = "redis-timeout"
	flags.Int(key, 5, WrapString("(redis backend) Timeout of a single Redis round trip in seconds"))

	// raft
	key = "replica-id"
	flags.String(key, "", WrapString("(raft backend) Unique identifier of this device in the RAFT group (e.g. 'laptop')"))
	key = "cluster-members"
	flags.String(key, "", WrapString("(raft backend) Comma-separated list of replicas in the format 'laptop=localhost:63001,desktop=10.0.0.2:63001'"))
	key = "shard"
	flags.Uint64(key, 100, WrapString("(raft backend) ID of the RAFT shard holding the values"))
	key = "join"
	flags.Bool(key, false, WrapString("(raft backend) Join an existing RAFT group instead of bootstrapping a new one"))
	key = "rtt-millisecond"
	flags.Uint64(key, 100, WrapString("(raft backend) Average round trip time in milliseconds between two replicas. Election and heartbeat timeouts are derived from this value"))
	key = "snapshot-entries"
	flags.Uint64(key, 100, WrapString("(raft backend) Number of applied entries after which a snapshot is taken (0 disables snapshots)"))
	key = "compaction-overhead"
	flags.Uint64(key, 50, WrapString("(raft backend) Number of entries kept in the log after a snapshot"))
	key = "data-dir"
	flags.String(key, "data", WrapString("(raft backend) Directory used for the RAFT log and snapshots"))
	key = "timeout"
	flags.Int64(key, 5, WrapString("(raft backend) Timeout of a single proposal or read in seconds"))

	// logging
	key = "log-level"
	flags.String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	key = "log-file"
	flags.String(key, "", WrapString("Write logs to this file instead of stdout. The file is rotated by size"))
	key = "log-max-size"
	flags.Int(key, 10, WrapString("Maximum size in MB of the log file before it is rotated"))
	key = "log-max-backups"
	flags.Int(key, 3, WrapString("Number of rotated log files to keep"))
	key = "log-compress"
	flags.Bool(key, false, WrapString("Compress rotated log files"))
}

// InitConfig loads .env files and initializes viper to read environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("cloudstorage")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConfig reads the configuration from viper
func GetConfig() (*common.Config, error) {
	backend, err := common.ParseBackendType(viper.GetString("backend"))
	if err != nil {
		return nil, err
	}

	conf := &common.Config{
		Backend: backend,
		File: common.FileConfig{
			Path: viper.GetString("file-path"),
		},
		Redis: common.RedisConfig{
			Address:       viper.GetString("redis-address"),
			Password:      viper.GetString("redis-password"),
			DB:            viper.GetInt("redis-db"),
			KeyPrefix:     viper.GetString("redis-key-prefix"),
			TimeoutSecond: viper.GetInt("redis-timeout"),
		},
		Raft: common.RaftConfig{
			ShardID:            viper.GetUint64("shard"),
			Join:               viper.GetBool("join"),
			RTTMillisecond:     viper.GetUint64("rtt-millisecond"),
			SnapshotEntries:    viper.GetUint64("snapshot-entries"),
			CompactionOverhead: viper.GetUint64("compaction-overhead"),
			DataDir:            viper.GetString("data-dir"),
			TimeoutSecond:      viper.GetInt64("timeout"),
		},
		Log: common.LogConfig{
			Level:      viper.GetString("log-level"),
			File:       viper.GetString("log-file"),
			MaxSizeMB:  viper.GetInt("log-max-size"),
			MaxBackups: viper.GetInt("log-max-backups"),
			Compress:   viper.GetBool("log-compress"),
		},
	}

	if backend == common.BackendRaft {
		id := viper.GetString("replica-id")
		if id == "" {
			return nil, fmt.Errorf("replica-id is required for the raft backend")
		}
		conf.Raft.ReplicaID = common.HashString(id)

		members, err := common.ParseClusterMembers(viper.GetString("cluster-members"))
		if err != nil {
			return nil, err
		}
		conf.Raft.ClusterMembers = members
	}

	return conf, nil
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// OpenStore creates the store backend selected by conf
func OpenStore(conf *common.Config) (store.IStore, error) {
	switch conf.Backend {
	case common.BackendMemory:
		return lstore.NewLocalStore(nil), nil
	case common.BackendFile:
		return fstore.Open(conf.File.Path)
	case common.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Address,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		return rstore.New(rstore.Config{
			Client:    client,
			KeyPrefix: conf.Redis.KeyPrefix,
			Timeout:   time.Duration(conf.Redis.TimeoutSecond) * time.Second,
		})
	case common.BackendRaft:
		return dstore.Start(conf.Raft)
	default:
		return nil, fmt.Errorf("invalid backend %s", conf.Backend)
	}
}
