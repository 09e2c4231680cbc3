package fragment

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/pkg/errors"
)

const (
	KeyID    = "$id"
	KeyRef   = "$ref"
	KeyType  = "type"
	KeyItems = "items"

	KeyProperties           = "properties"
	KeyOptionalProperties   = "optionalProperties"
	KeyAdditionalProperties = "additionalProperties"
	KeyElements             = "elements"
	KeyDefinitions          = "definitions"
	KeyJTDRef               = "ref"
)

// Fragment is a JSON-Schema or JTD document describing one address.
type Fragment map[string]any

// Clone returns a deep copy.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	return cloneValue(map[string]any(f)).(map[string]any)
}

// Merge returns a copy of f with every key of other set over it.
func (f Fragment) Merge(other Fragment) Fragment {
	out := f.Clone()
	if out == nil {
		out = Fragment{}
	}
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}

// Without returns a copy of f lacking the given keys.
func (f Fragment) Without(keys ...string) Fragment {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Map returns the nested object at key, if any.
func (f Fragment) Map(key string) (Fragment, bool) {
	switch v := f[key].(type) {
	case Fragment:
		return v, true
	case map[string]any:
		return v, true
	default:
		return nil, false
	}
}

// Has reports whether key is set.
func (f Fragment) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Keys returns the sorted keys.
func (f Fragment) Keys() []string {
	keys := slices.Sorted(maps.Keys(f))
	return keys
}

// MarshalIndent renders f for logs and golden files.
func (f Fragment) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(map[string]any(f), "", "  ")
}

// ParseJSON decodes a raw serialized fragment.
func ParseJSON(raw string) (Fragment, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, errors.Wrap(err, "failed to parse fragment")
	}
	return out, nil
}

// FromValue converts a decoded YAML or JSON value into a fragment. Nested maps keyed by
// anything but strings are rejected.
func FromValue(v any) (Fragment, bool) {
	normalized, ok := normalize(v)
	if !ok {
		return nil, false
	}
	m, ok := normalized.(map[string]any)
	return m, ok
}

func normalize(v any) (any, bool) {
	switch val := v.(type) {
	case Fragment:
		return normalize(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, ok := normalize(item)
			if !ok {
				return nil, false
			}
			out[k] = n
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			n, ok := normalize(item)
			if !ok {
				return nil, false
			}
			out[key] = n
		}
		return out, true
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, ok := normalize(item)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	default:
		return v, true
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Fragment:
		return Fragment(cloneValue(map[string]any(val)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
