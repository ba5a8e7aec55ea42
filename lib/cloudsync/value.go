package cloudsync

import (
	"encoding/binary"
	"math"
	"net/url"
)

// kind is the type tag stored in front of every value.
type kind byte

const (
	kindBool kind = iota + 1
	kindInt
	kindDouble
	kindString
	kindURL
	kindData
)

func (k kind) String() string {
	switch k {
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindDouble:
		return "double"
	case kindString:
		return "string"
	case kindURL:
		return "url"
	case kindData:
		return "data"
	default:
		return "unknown"
	}
}

// encodeValue prefixes payload with the kind tag.
func encodeValue(k kind, payload []byte) []byte {
	result := make([]byte, 1+len(payload))
	result[0] = byte(k)
	copy(result[1:], payload)
	return result
}

// decodeValue returns the payload of raw if it carries the wanted kind.
func decodeValue(raw []byte, want kind) ([]byte, bool) {
	if len(raw) == 0 || kind(raw[0]) != want {
		return nil, false
	}
	return raw[1:], true
}

func encodeBool(v bool) []byte {
	if v {
		return encodeValue(kindBool, []byte{1})
	}
	return encodeValue(kindBool, []byte{0})
}

func decodeBool(payload []byte) (bool, bool) {
	if len(payload) != 1 || payload[0] > 1 {
		return false, false
	}
	return payload[0] == 1, true
}

func encodeInt(v int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(v)))
	return encodeValue(kindInt, buf[:])
}

func decodeInt(payload []byte) (int, bool) {
	if len(payload) != 8 {
		return 0, false
	}
	return int(int64(binary.BigEndian.Uint64(payload))), true
}

func encodeDouble(v float64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	return encodeValue(kindDouble, buf[:])
}

func decodeDouble(payload []byte) (float64, bool) {
	if len(payload) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(payload)), true
}

func encodeString(v string) []byte {
	return encodeValue(kindString, []byte(v))
}

func encodeURL(v *url.URL) []byte {
	return encodeValue(kindURL, []byte(v.String()))
}

func decodeURL(payload []byte) (*url.URL, bool) {
	u, err := url.Parse(string(payload))
	if err != nil {
		return nil, false
	}
	return u, true
}
