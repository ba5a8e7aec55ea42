package cloudstorage

import (
	"net/url"

	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
)

// Bool binds key to a boolean with default def.
func Bool(s *cloudsync.Sync, key string, def bool, opts ...Option) *Binding[bool] {
	return newBinding[bool](s, key, def, boolCodec{}, opts)
}

// Int binds key to an integer with default def.
func Int(s *cloudsync.Sync, key string, def int, opts ...Option) *Binding[int] {
	return newBinding[int](s, key, def, intCodec{}, opts)
}

// Double binds key to a floating point number with default def.
func Double(s *cloudsync.Sync, key string, def float64, opts ...Option) *Binding[float64] {
	return newBinding[float64](s, key, def, doubleCodec{}, opts)
}

// String binds key to a string with default def.
func String(s *cloudsync.Sync, key string, def string, opts ...Option) *Binding[string] {
	return newBinding[string](s, key, def, stringCodec{}, opts)
}

// URL binds key to a URL with default def. Setting nil clears the key.
func URL(s *cloudsync.Sync, key string, def *url.URL, opts ...Option) *Binding[*url.URL] {
	return newBinding[*url.URL](s, key, def, urlCodec{}, opts)
}

// Data binds key to a byte slice with default def. Setting nil clears the key.
func Data(s *cloudsync.Sync, key string, def []byte, opts ...Option) *Binding[[]byte] {
	return newBinding[[]byte](s, key, def, dataCodec{}, opts)
}

// OptionalBool binds key to a boolean without default. nil means unset; setting nil clears the key.
func OptionalBool(s *cloudsync.Sync, key string, opts ...Option) *Binding[*bool] {
	return newBinding[*bool](s, key, nil, optionalCodec[bool]{inner: boolCodec{}}, opts)
}

// OptionalInt binds key to an integer without default.
func OptionalInt(s *cloudsync.Sync, key string, opts ...Option) *Binding[*int] {
	return newBinding[*int](s, key, nil, optionalCodec[int]{inner: intCodec{}}, opts)
}

// OptionalDouble binds key to a floating point number without default.
func OptionalDouble(s *cloudsync.Sync, key string, opts ...Option) *Binding[*float64] {
	return newBinding[*float64](s, key, nil, optionalCodec[float64]{inner: doubleCodec{}}, opts)
}

// OptionalString binds key to a string without default.
func OptionalString(s *cloudsync.Sync, key string, opts ...Option) *Binding[*string] {
	return newBinding[*string](s, key, nil, optionalCodec[string]{inner: stringCodec{}}, opts)
}

// OptionalURL binds key to a URL without default.
func OptionalURL(s *cloudsync.Sync, key string, opts ...Option) *Binding[*url.URL] {
	return newBinding[*url.URL](s, key, nil, urlCodec{}, opts)
}

// OptionalData binds key to a byte slice without default.
func OptionalData(s *cloudsync.Sync, key string, opts ...Option) *Binding[[]byte] {
	return newBinding[[]byte](s, key, nil, dataCodec{}, opts)
}

// IntEnum binds key to an enumeration stored as its integer value.
// Stored values that are not among cases read as def; writing such a value is
// reported and skipped. An empty cases list accepts every value.
func IntEnum[E ~int](s *cloudsync.Sync, key string, def E, cases []E, opts ...Option) *Binding[E] {
	return newBinding[E](s, key, def, intEnumCodec[E]{cases: cases}, opts)
}

// StringEnum binds key to an enumeration stored as its string value, with the same rules as IntEnum.
func StringEnum[E ~string](s *cloudsync.Sync, key string, def E, cases []E, opts ...Option) *Binding[E] {
	return newBinding[E](s, key, def, stringEnumCodec[E]{cases: cases}, opts)
}

// Codable binds key to a structured value encoded with enc. A stored value that
// cannot be decoded reads as def and is reported; a value that cannot be
// encoded is reported and not written.
func Codable[T any](s *cloudsync.Sync, key string, def T, enc Encoding, opts ...Option) *Binding[T] {
	return newBinding[T](s, key, def, codableCodec[T]{enc: enc}, opts)
}
