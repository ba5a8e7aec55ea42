package cloudstorage

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Encoding turns structured values into bytes and back. It is used by Codable bindings.
type Encoding interface {
	// Name returns a short identifier used in logs and errors.
	Name() string
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes b into the value pointed to by v.
	Unmarshal(b []byte, v any) error
}

// The encodings available for Codable bindings.
var (
	JSON Encoding = jsonEncodingImpl{}
	GOB  Encoding = gobEncodingImpl{}
	YAML Encoding = yamlEncodingImpl{}
)

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// jsonEncodingImpl implements the Encoding interface using json encoding
type jsonEncodingImpl struct{}

func (jsonEncodingImpl) Name() string { return "json" }

func (jsonEncodingImpl) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonEncodingImpl) Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

// --------------------------------------------------------------------------
// GOB
// --------------------------------------------------------------------------

// gobEncodingImpl implements the Encoding interface using Go's binary gob format
type gobEncodingImpl struct{}

func (gobEncodingImpl) Name() string { return "gob" }

func (gobEncodingImpl) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobEncodingImpl) Unmarshal(b []byte, v any) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	return dec.Decode(v)
}

// --------------------------------------------------------------------------
// YAML
// --------------------------------------------------------------------------

// yamlEncodingImpl implements the Encoding interface using yaml.v3
type yamlEncodingImpl struct{}

func (yamlEncodingImpl) Name() string { return "yaml" }

func (yamlEncodingImpl) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlEncodingImpl) Unmarshal(b []byte, v any) error {
	return yaml.Unmarshal(b, v)
}
