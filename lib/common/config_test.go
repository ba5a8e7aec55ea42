package common

import (
	"strings"
	"testing"
)

func TestParseClusterMembers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "two members", input: "node-1=localhost:63001,node-2=localhost:63002", want: 2},
		{name: "spaces and trailing comma", input: " node-1 = localhost:63001 , ", want: 1},
		{name: "empty", input: "", want: 0},
		{name: "missing address", input: "node-1=", wantErr: true},
		{name: "no separator", input: "node-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members, err := ParseClusterMembers(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClusterMembers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(members) != tt.want {
				t.Errorf("ParseClusterMembers() returned %d members, want %d", len(members), tt.want)
			}
		})
	}

	members, _ := ParseClusterMembers("node-1=localhost:63001")
	if members[HashString("node-1")] != "localhost:63001" {
		t.Errorf("Expected member to be keyed by the hash of its name, got %v", members)
	}
}

func TestParseBackendType(t *testing.T) {
	for _, s := range []string{"memory", "FILE", " redis ", "raft"} {
		if _, err := ParseBackendType(s); err != nil {
			t.Errorf("ParseBackendType(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseBackendType("icloud"); err == nil {
		t.Errorf("Expected ParseBackendType to reject unknown backends")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "warning", "ERROR"} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected ParseLogLevel to reject unknown levels")
	}
}

func TestRaftConfigValidate(t *testing.T) {
	c := RaftConfig{
		ReplicaID:      HashString("node-1"),
		ClusterMembers: map[uint64]string{HashString("node-1"): "localhost:63001"},
		DataDir:        "data",
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	c.ReplicaID = HashString("node-2")
	if err := c.Validate(); err == nil {
		t.Errorf("Expected error for replica without address")
	}

	single := RaftConfig{
		ReplicaID:      1,
		ClusterMembers: map[uint64]string{1: "localhost:63001"},
		DataDir:        "data",
		RTTMillisecond: 50,
	}
	nh := single.ToNodeHostConfig()
	if nh.RaftAddress != "localhost:63001" || nh.RTTMillisecond != 50 {
		t.Errorf("Unexpected NodeHostConfig: %+v", nh)
	}
}

func TestConfigString(t *testing.T) {
	c := Config{
		Backend: BackendRaft,
		Raft: RaftConfig{
			ReplicaID:      1,
			ClusterMembers: map[uint64]string{2: "b:2", 1: "a:1"},
		},
		Log: LogConfig{Level: "info"},
	}
	out := c.String()
	for _, want := range []string{"raft", "Node 1: a:1", "Node 2: b:2", "LOGGING"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in config string:\n%s", want, out)
		}
	}
	if strings.Index(out, "Node 1:") > strings.Index(out, "Node 2:") {
		t.Errorf("Expected members to be sorted:\n%s", out)
	}
}
