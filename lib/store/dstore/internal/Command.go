package internal

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed part of a serialized command: Type + Origin + KeyLen
const headerSize = 1 + 8 + 4

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTSet    CommandType = iota // Insert or update an entry.
	CommandTDelete                    // Delete an entry.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTDelete:
		return "Delete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// Command represents a command to be executed by the state machine (a single entry in the raft log).
// Origin is the replica id of the proposing node; replicas use it to tell their own writes
// from writes of other devices.
type Command struct {
	Type   CommandType
	Origin uint64
	Key    string
	Value  []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Key) + len(command.Value)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the origin replica id (big endian),
// 4 bytes for key length (big endian),
// N bytes for key data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], command.Origin)
	binary.BigEndian.PutUint32(result[9:13], uint32(len(command.Key)))

	copy(result[headerSize:], command.Key)
	copy(result[headerSize+len(command.Key):], command.Value)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Origin = binary.BigEndian.Uint64(data[1:9])
	keyLen := int(binary.BigEndian.Uint32(data[9:13]))

	if len(data) < headerSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	command.Key = string(data[headerSize : headerSize+keyLen])

	valueLen := len(data) - headerSize - keyLen
	switch {
	case command.Type == CommandTDelete:
		command.Value = nil
	case command.Value == nil || cap(command.Value) < valueLen:
		// Reuse existing buffer if possible to reduce allocations
		command.Value = make([]byte, valueLen)
	default:
		command.Value = command.Value[:valueLen]
	}
	copy(command.Value, data[headerSize+keyLen:])

	return nil
}
