package kv

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ValentinKolb/cloudstorage/lib/cloudsync"
)

// ValueType is the value kind selected with --type
type ValueType string

const (
	TypeBool   ValueType = "bool"
	TypeInt    ValueType = "int"
	TypeDouble ValueType = "double"
	TypeString ValueType = "string"
	TypeURL    ValueType = "url"
	TypeData   ValueType = "data"
)

// ParseValueType converts a flag value into a ValueType
func ParseValueType(s string) (ValueType, error) {
	switch t := ValueType(s); t {
	case TypeBool, TypeInt, TypeDouble, TypeString, TypeURL, TypeData:
		return t, nil
	default:
		return "", fmt.Errorf("invalid type %q (expected one of: bool, int, double, string, url, data)", s)
	}
}

// SetValue parses raw as a value of type t and writes it through the facade.
// Parse errors and errors of the store are returned
func SetValue(s *cloudsync.Sync, t ValueType, key, raw string) error {
	switch t {
	case TypeBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("value must be a boolean: %w", err)
		}
		return s.SetBool(key, v)
	case TypeInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("value must be an integer: %w", err)
		}
		return s.SetInt(key, v)
	case TypeDouble:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("value must be a number: %w", err)
		}
		return s.SetDouble(key, v)
	case TypeString:
		return s.SetString(key, raw)
	case TypeURL:
		v, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("value must be a URL: %w", err)
		}
		return s.SetURL(key, v)
	case TypeData:
		return s.SetData(key, []byte(raw))
	default:
		return fmt.Errorf("invalid type %q", t)
	}
}

// GetValue reads key as a value of type t and formats it for output
func GetValue(s *cloudsync.Sync, t ValueType, key string) (string, bool, error) {
	switch t {
	case TypeBool:
		v, ok := s.Bool(key)
		return strconv.FormatBool(v), ok, nil
	case TypeInt:
		v, ok := s.Int(key)
		return strconv.Itoa(v), ok, nil
	case TypeDouble:
		v, ok := s.Double(key)
		return strconv.FormatFloat(v, 'g', -1, 64), ok, nil
	case TypeString:
		v, ok := s.String(key)
		return v, ok, nil
	case TypeURL:
		v, ok := s.URL(key)
		if !ok {
			return "", false, nil
		}
		return v.String(), true, nil
	case TypeData:
		v, ok := s.Data(key)
		return string(v), ok, nil
	default:
		return "", false, fmt.Errorf("invalid type %q", t)
	}
}
