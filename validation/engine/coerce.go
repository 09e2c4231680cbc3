package engine

import (
	"strconv"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
)

const maxCoerceDepth = 64

// coerce converts scalars in data to the type declared by f, following $ref, properties and
// items. Values that already match one of the declared types are left untouched.
func coerce(data any, f fragment.Fragment, idx index, depth int) any {
	if f == nil || depth > maxCoerceDepth {
		return data
	}

	if ref, ok := f[fragment.KeyRef].(string); ok {
		if target, ok := idx.ref(ref); ok {
			data = coerce(data, target, idx, depth+1)
		}
	}

	if types := typesOf(f[fragment.KeyType]); len(types) > 0 && !matchesAny(data, types) {
		for _, t := range types {
			if converted, ok := convert(data, t); ok {
				data = converted
				break
			}
		}
	}

	switch val := data.(type) {
	case map[string]any:
		props, ok := f.Map(fragment.KeyProperties)
		if !ok {
			break
		}
		for name, item := range val {
			if sub, ok := props.Map(name); ok {
				val[name] = coerce(item, sub, idx, depth+1)
			}
		}
	case []any:
		items, ok := f.Map(fragment.KeyItems)
		if !ok {
			break
		}
		for i, item := range val {
			val[i] = coerce(item, items, idx, depth+1)
		}
	}
	return data
}

func typesOf(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}

func matchesAny(data any, types []string) bool {
	for _, t := range types {
		if matches(data, t) {
			return true
		}
	}
	return false
}

func matches(data any, t string) bool {
	switch t {
	case "null":
		return data == nil
	case "boolean":
		_, ok := data.(bool)
		return ok
	case "string":
		_, ok := data.(string)
		return ok
	case "number":
		_, ok := data.(float64)
		return ok
	case "integer":
		n, ok := data.(float64)
		return ok && n == float64(int64(n))
	case "object":
		_, ok := data.(map[string]any)
		return ok
	case "array":
		_, ok := data.([]any)
		return ok
	}
	return false
}

// convert applies the scalar coercion table for one target type.
func convert(data any, t string) (any, bool) {
	switch t {
	case "string":
		switch v := data.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		case nil:
			return "", true
		}
	case "number", "integer":
		switch v := data.(type) {
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || (t == "integer" && n != float64(int64(n))) {
				return nil, false
			}
			return n, true
		case bool:
			if v {
				return float64(1), true
			}
			return float64(0), true
		case nil:
			return float64(0), true
		}
	case "boolean":
		switch v := data.(type) {
		case string:
			if v == "true" || v == "false" {
				return v == "true", true
			}
		case float64:
			if v == 0 || v == 1 {
				return v == 1, true
			}
		case nil:
			return false, true
		}
	case "null":
		switch v := data.(type) {
		case string:
			if v == "" {
				return nil, true
			}
		case float64:
			if v == 0 {
				return nil, true
			}
		case bool:
			if !v {
				return nil, true
			}
		}
	}
	return nil, false
}
