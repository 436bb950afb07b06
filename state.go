package prooftree

import (
	"fmt"

	"github.com/vk/prooftree/internal/blobstore"
)

// State is the mutable data map handed from an analysis to its children.
// Steps read and write arbitrary keys on it.
type State map[string]any

// Clone returns a deep copy of the state via a serialization round-trip,
// using the same codec the cache uses. A clone is therefore exactly what a
// save/load cycle would produce, and mutating it can never leak back into
// the original. This is how sibling subtrees are isolated from each other.
func (s State) Clone() (State, error) {
	raw, err := blobstore.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("prooftree: encoding state: %w", err)
	}
	out, err := blobstore.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("prooftree: decoding state: %w", err)
	}
	return State(out), nil
}

// Int returns the value at key as an int64. The codec widens integers to
// int64 on decode, so a freshly computed int and a reloaded one may differ
// in Go type while being the same number; Int hides that difference.
func (s State) Int(key string) (int64, bool) {
	switch v := s[key].(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

// Float returns the value at key as a float64, accepting integer values.
func (s State) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if n, ok := s.Int(key); ok {
		return float64(n), true
	}
	return 0, false
}

// String returns the value at key if it is a string.
func (s State) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Bool returns the value at key if it is a bool.
func (s State) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// Slice returns the value at key if it is a []any.
func (s State) Slice(key string) ([]any, bool) {
	v, ok := s[key].([]any)
	return v, ok
}

// Map returns the value at key if it is a map[string]any.
func (s State) Map(key string) (map[string]any, bool) {
	v, ok := s[key].(map[string]any)
	return v, ok
}
