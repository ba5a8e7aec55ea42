package cloudstorage

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
)

// codec maps one value kind onto the typed facade calls. The methods are
// unexported, so the set of kinds is fixed by this package.
type codec[T any] interface {
	// read returns the stored value. ok is false if the key is unset or the value
	// has another type; err is set if the value exists but cannot be decoded.
	read(s *cloudsync.Sync, key string) (v T, ok bool, err error)
	// write stores v. An error means nothing was written.
	write(s *cloudsync.Sync, key string, v T) error
}

// stored wraps a store error returned by a facade setter.
func stored(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrWrite, err)
}

// --------------------------------------------------------------------------
// Primitive kinds
// --------------------------------------------------------------------------

type boolCodec struct{}

func (boolCodec) read(s *cloudsync.Sync, key string) (bool, bool, error) {
	v, ok := s.Bool(key)
	return v, ok, nil
}

func (boolCodec) write(s *cloudsync.Sync, key string, v bool) error {
	return stored(s.SetBool(key, v))
}

type intCodec struct{}

func (intCodec) read(s *cloudsync.Sync, key string) (int, bool, error) {
	v, ok := s.Int(key)
	return v, ok, nil
}

func (intCodec) write(s *cloudsync.Sync, key string, v int) error {
	return stored(s.SetInt(key, v))
}

type doubleCodec struct{}

func (doubleCodec) read(s *cloudsync.Sync, key string) (float64, bool, error) {
	v, ok := s.Double(key)
	return v, ok, nil
}

func (doubleCodec) write(s *cloudsync.Sync, key string, v float64) error {
	return stored(s.SetDouble(key, v))
}

type stringCodec struct{}

func (stringCodec) read(s *cloudsync.Sync, key string) (string, bool, error) {
	v, ok := s.String(key)
	return v, ok, nil
}

func (stringCodec) write(s *cloudsync.Sync, key string, v string) error {
	return stored(s.SetString(key, v))
}

// urlCodec clears the key on a nil write.
type urlCodec struct{}

func (urlCodec) read(s *cloudsync.Sync, key string) (*url.URL, bool, error) {
	v, ok := s.URL(key)
	return v, ok, nil
}

func (urlCodec) write(s *cloudsync.Sync, key string, v *url.URL) error {
	return stored(s.SetURL(key, v))
}

// dataCodec clears the key on a nil write.
type dataCodec struct{}

func (dataCodec) read(s *cloudsync.Sync, key string) ([]byte, bool, error) {
	v, ok := s.Data(key)
	return v, ok, nil
}

func (dataCodec) write(s *cloudsync.Sync, key string, v []byte) error {
	return stored(s.SetData(key, v))
}

// --------------------------------------------------------------------------
// Optional kinds
// --------------------------------------------------------------------------

// optionalCodec wraps a value codec: nil means absent, writing nil clears the key.
type optionalCodec[T any] struct {
	inner codec[T]
}

func (c optionalCodec[T]) read(s *cloudsync.Sync, key string) (*T, bool, error) {
	v, ok, err := c.inner.read(s, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}

func (c optionalCodec[T]) write(s *cloudsync.Sync, key string, v *T) error {
	if v == nil {
		return stored(s.Remove(key))
	}
	return c.inner.write(s, key, *v)
}

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

// intEnumCodec stores the integer representation. Values that are not among
// cases read as absent; an empty case list accepts every value.
type intEnumCodec[E ~int] struct {
	cases []E
}

func (c intEnumCodec[E]) read(s *cloudsync.Sync, key string) (E, bool, error) {
	raw, ok := s.Int(key)
	if !ok {
		return 0, false, nil
	}
	if e := E(raw); isCase(c.cases, e) {
		return e, true, nil
	}
	log.Debugf("key %s holds %d which is not a case of the enumeration", key, raw)
	return 0, false, nil
}

func (c intEnumCodec[E]) write(s *cloudsync.Sync, key string, v E) error {
	if !isCase(c.cases, v) {
		return fmt.Errorf("%w: %d is not a case of the enumeration", ErrEncode, int(v))
	}
	return stored(s.SetInt(key, int(v)))
}

// stringEnumCodec stores the string representation, with the same fallback as intEnumCodec.
type stringEnumCodec[E ~string] struct {
	cases []E
}

func (c stringEnumCodec[E]) read(s *cloudsync.Sync, key string) (E, bool, error) {
	raw, ok := s.String(key)
	if !ok {
		return "", false, nil
	}
	if e := E(raw); isCase(c.cases, e) {
		return e, true, nil
	}
	log.Debugf("key %s holds %q which is not a case of the enumeration", key, raw)
	return "", false, nil
}

func (c stringEnumCodec[E]) write(s *cloudsync.Sync, key string, v E) error {
	if !isCase(c.cases, v) {
		return fmt.Errorf("%w: %q is not a case of the enumeration", ErrEncode, string(v))
	}
	return stored(s.SetString(key, string(v)))
}

func isCase[E comparable](cases []E, v E) bool {
	return len(cases) == 0 || slices.Contains(cases, v)
}

// --------------------------------------------------------------------------
// Structured values
// --------------------------------------------------------------------------

// codableCodec stores T as bytes produced by an Encoding.
type codableCodec[T any] struct {
	enc Encoding
}

func (c codableCodec[T]) read(s *cloudsync.Sync, key string) (T, bool, error) {
	var v T
	raw, ok := s.Data(key)
	if !ok {
		return v, false, nil
	}
	if err := c.enc.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%w: %s value: %v", ErrDecode, c.enc.Name(), err)
	}
	return v, true, nil
}

func (c codableCodec[T]) write(s *cloudsync.Sync, key string, v T) error {
	raw, err := c.enc.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s value: %v", ErrEncode, c.enc.Name(), err)
	}
	if raw == nil {
		raw = []byte{}
	}
	return stored(s.SetData(key, raw))
}
