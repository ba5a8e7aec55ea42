package internal

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name: "Command with key and value",
			command: Command{
				Type:   CommandTSet,
				Origin: 7,
				Key:    "testkey",
				Value:  []byte("testvalue"),
			},
			expected: 1 + 8 + 4 + 7 + 9, // Type + Origin + KeyLen + Key + Value
		},
		{
			name: "Delete without value",
			command: Command{
				Type: CommandTDelete,
				Key:  "testkey",
			},
			expected: 1 + 8 + 4 + 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name:    "Set with value",
			command: Command{Type: CommandTSet, Origin: 1, Key: "testkey", Value: []byte("testvalue")},
		},
		{
			name:    "Delete",
			command: Command{Type: CommandTDelete, Origin: 2, Key: "testkey"},
		},
		{
			name:    "Set with empty key",
			command: Command{Type: CommandTSet, Origin: 3, Key: "", Value: []byte("v")},
		},
		{
			name:    "Set with empty value",
			command: Command{Type: CommandTSet, Origin: 4, Key: "k", Value: []byte{}},
		},
		{
			name:    "Set with binary value",
			command: Command{Type: CommandTSet, Origin: 5, Key: "binary", Value: []byte{0, 1, 2, 3, 254, 255}},
		},
		{
			name:    "Max origin and unicode key",
			command: Command{Type: CommandTSet, Origin: 18446744073709551615, Key: "你好世界", Value: []byte("unicode")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var got Command
			if err := got.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if got.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", got.Type, tt.command.Type)
			}
			if got.Origin != tt.command.Origin {
				t.Errorf("Origin mismatch: got %v, want %v", got.Origin, tt.command.Origin)
			}
			if got.Key != tt.command.Key {
				t.Errorf("Key mismatch: got %q, want %q", got.Key, tt.command.Key)
			}
			if !bytes.Equal(got.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", got.Value, tt.command.Value)
			}
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d", tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTSet)
				binary.BigEndian.PutUint32(data[9:13], 1000)
				return data
			}(),
			expectedErr: "data too short for key of length 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)
			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:   CommandTSet,
		Origin: 12345,
		Key:    "testkey",
		Value:  []byte("testvalue"),
	}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTSet)
	binary.BigEndian.PutUint64(expected[1:9], 12345)
	binary.BigEndian.PutUint32(expected[9:13], 7) // "testkey" length
	copy(expected[13:20], "testkey")
	copy(expected[20:], "testvalue")

	if serialized := cmd.Serialize(); !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestBufferReuse tests that Deserialize reuses the value buffer when it is large enough
func TestBufferReuse(t *testing.T) {
	cmd := Command{Type: CommandTSet, Key: "key", Value: []byte("original value")}
	originalCap := cap(cmd.Value)

	next := Command{Type: CommandTSet, Key: "key", Value: []byte("changed")}
	if err := cmd.Deserialize(next.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if cap(cmd.Value) != originalCap {
		t.Errorf("Expected buffer to be reused, capacity changed from %d to %d", originalCap, cap(cmd.Value))
	}
	if !bytes.Equal(cmd.Value, []byte("changed")) {
		t.Errorf("Value not correctly deserialized: got %q", cmd.Value)
	}

	del := Command{Type: CommandTDelete, Key: "key"}
	if err := cmd.Deserialize(del.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if cmd.Value != nil {
		t.Errorf("Expected nil value after deserializing a delete, got %v", cmd.Value)
	}
}
