package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/cloudstorage/lib/common"
	"github.com/ValentinKolb/cloudstorage/lib/store/fstore"
	"github.com/ValentinKolb/cloudstorage/lib/store/lstore"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("WrapString() = %q, want unchanged", got)
	}
}

func TestGetConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("Raft", func(t *testing.T) {
		viper.Reset()
		viper.Set("backend", "raft")
		viper.Set("replica-id", "node-1")
		viper.Set("cluster-members", "node-1=localhost:63001,node-2=localhost:63002")
		viper.Set("shard", 7)

		conf, err := GetConfig()
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}
		if conf.Backend != common.BackendRaft {
			t.Errorf("Backend = %s, want raft", conf.Backend)
		}
		if conf.Raft.ReplicaID != common.HashString("node-1") {
			t.Errorf("ReplicaID = %d, want hash of node-1", conf.Raft.ReplicaID)
		}
		if conf.Raft.ShardID != 7 {
			t.Errorf("ShardID = %d, want 7", conf.Raft.ShardID)
		}
		if len(conf.Raft.ClusterMembers) != 2 {
			t.Errorf("expected 2 cluster members, got %d", len(conf.Raft.ClusterMembers))
		}
	})

	t.Run("RaftWithoutReplicaID", func(t *testing.T) {
		viper.Reset()
		viper.Set("backend", "raft")
		if _, err := GetConfig(); err == nil {
			t.Error("expected error without replica-id")
		}
	})

	t.Run("InvalidBackend", func(t *testing.T) {
		viper.Reset()
		viper.Set("backend", "tape")
		if _, err := GetConfig(); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}

func TestOpenStore(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		s, err := OpenStore(&common.Config{Backend: common.BackendMemory})
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()
		if _, ok := s.(*lstore.Store); !ok {
			t.Errorf("expected *lstore.Store, got %T", s)
		}
	})

	t.Run("File", func(t *testing.T) {
		path := t.TempDir() + "/values.json"
		s, err := OpenStore(&common.Config{Backend: common.BackendFile, File: common.FileConfig{Path: path}})
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()
		if _, ok := s.(*fstore.Store); !ok {
			t.Errorf("expected *fstore.Store, got %T", s)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, err := OpenStore(&common.Config{Backend: "tape"}); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}
