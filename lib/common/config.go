package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the RaftConfig to Dragonboat Config
func (c *RaftConfig) ToDragonboatConfig() config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            c.ShardID,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *RaftConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// Timeout returns the per-operation timeout as a duration.
func (c *RaftConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks that the replica can find its own address among the members.
func (c *RaftConfig) Validate() error {
	if len(c.ClusterMembers) == 0 {
		return fmt.Errorf("ClusterMembers is required for the raft backend")
	}
	if _, ok := c.ClusterMembers[c.ReplicaID]; !ok {
		return fmt.Errorf("no address found for replica ID %d in cluster members", c.ReplicaID)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DataDir is required for the raft backend")
	}
	return nil
}

// --------------------------------------------------------------------------
// Configuration structs
// --------------------------------------------------------------------------

type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendFile   BackendType = "file"
	BackendRedis  BackendType = "redis"
	BackendRaft   BackendType = "raft"
)

// ParseBackendType converts a flag value into a BackendType.
func ParseBackendType(s string) (BackendType, error) {
	switch BackendType(strings.ToLower(strings.TrimSpace(s))) {
	case BackendMemory:
		return BackendMemory, nil
	case BackendFile:
		return BackendFile, nil
	case BackendRedis:
		return BackendRedis, nil
	case BackendRaft:
		return BackendRaft, nil
	default:
		return "", fmt.Errorf("invalid backend %q (expected one of: memory, file, redis, raft)", s)
	}
}

// FileConfig configures the file backend.
type FileConfig struct {
	Path string
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Address       string
	Password      string
	DB            int
	KeyPrefix     string
	TimeoutSecond int
}

// RaftConfig holds all configuration parameters of one replica of the RAFT group.
type RaftConfig struct {
	ShardID            uint64
	ReplicaID          uint64
	ClusterMembers     map[uint64]string
	Join               bool
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	TimeoutSecond      int64
}

// LogConfig configures level and destination of the log output.
type LogConfig struct {
	Level      string
	File       string // empty = stdout
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Config holds the complete configuration of a process using the sync facade.
type Config struct {
	Backend BackendType
	File    FileConfig
	Redis   RedisConfig
	Raft    RaftConfig
	Log     LogConfig
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("Backend", string(c.Backend))

	switch c.Backend {
	case BackendFile:
		addField("Path", c.File.Path)
	case BackendRedis:
		addField("Address", c.Redis.Address)
		addField("DB", strconv.Itoa(c.Redis.DB))
		addField("Key Prefix", c.Redis.KeyPrefix)
		addField("Timeout", fmt.Sprintf("%d sec", c.Redis.TimeoutSecond))
	case BackendRaft:
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.Raft.ClusterMembers[c.Raft.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.Raft.ReplicaID, 10))
		addField("Shard ID", strconv.FormatUint(c.Raft.ShardID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.Raft.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.Raft.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.Raft.RTTMillisecond*heartbeatRTTFactor))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.Raft.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.Raft.CompactionOverhead))
		addField("Timeout", fmt.Sprintf("%d sec", c.Raft.TimeoutSecond))
		addField("Join", fmt.Sprintf("%t", c.Raft.Join))
		addField("Data Directory", c.Raft.DataDir)

		addSection("Cluster")
		sb.WriteString("  Initial Cluster Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.Raft.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.Raft.ClusterMembers[k]))
		}
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.Log.Level)
	if c.Log.File != "" {
		addField("Log File", c.Log.File)
		addField("Max Size", fmt.Sprintf("%d MB", c.Log.MaxSizeMB))
		addField("Max Backups", strconv.Itoa(c.Log.MaxBackups))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Hashing
// --------------------------------------------------------------------------

// HashString maps a human readable id (e.g. "node-1") to a replica id.
// This function uses the FNV-1a hash algorithm, which is fast and has good distribution
func HashString(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// ParseClusterMembers parses "node-1=host:port,node-2=host:port" into replica id → address.
func ParseClusterMembers(s string) (map[uint64]string, error) {
	members := make(map[uint64]string)
	for _, member := range strings.Split(s, ",") {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		parts := strings.Split(member, "=")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
		}
		members[HashString(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
	}
	return members, nil
}
