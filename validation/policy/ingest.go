package policy

import (
	"context"
	"os"

	"github.com/graphql-go/graphql"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// FunctionKey names a catalog validator inside a policy file.
const FunctionKey = "$function"

// FromMap ingests a policy tree whose leaves are fragments or validator functions.
// Every shape problem is reported, not only the first.
func FromMap(raw map[string]any) (*Policy, error) {
	p := New()
	var result *multierror.Error

	for _, typeName := range sortedKeys(raw) {
		typeValue, ok := asMap(raw[typeName])
		if !ok {
			result = multierror.Append(result, verrors.InvalidOpts("opts.schema.%s must be an object.", typeName))
			continue
		}

		t := p.ensureType(typeName)
		for _, fieldName := range sortedKeys(typeValue) {
			value := typeValue[fieldName]

			if fieldName == TypeValidationKey {
				f, ok := fragment.FromValue(value)
				if !ok {
					result = multierror.Append(result, verrors.InvalidOpts("opts.schema.%s.%s must be an object.", typeName, fieldName))
					continue
				}
				t.TypeValidation = &TypeValidationEntry{Fragment: f}
				continue
			}

			fieldValue, ok := asMap(value)
			if !ok {
				result = multierror.Append(result, verrors.InvalidOpts(
					"opts.schema.%s.%s cannot be a function. Only field arguments currently support functional validators.",
					typeName, fieldName,
				))
				continue
			}

			field, err := ingestField(fieldValue)
			if err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "opts.schema.%s.%s", typeName, fieldName))
				continue
			}
			t.Fields[fieldName] = field
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func ingestField(value map[string]any) (*FieldPolicy, error) {
	field := &FieldPolicy{Arguments: map[string]Entry{}}
	hasFunction := false

	for _, argName := range sortedKeys(value) {
		switch v := value[argName].(type) {
		case namedFunc:
			field.Arguments[argName] = FunctionEntry{Name: v.name, Fn: v.fn}
			hasFunction = true
		case function.Func:
			field.Arguments[argName] = FunctionEntry{Fn: v}
			hasFunction = true
		case func(context.Context, function.Metadata, any, graphql.ResolveParams) error:
			field.Arguments[argName] = FunctionEntry{Fn: v}
			hasFunction = true
		default:
			if f, ok := fragment.FromValue(v); ok {
				field.Arguments[argName] = FragmentEntry{Fragment: f}
			}
		}
	}

	if !hasFunction {
		f, ok := fragment.FromValue(value)
		if !ok {
			return nil, verrors.InvalidOpts("field entry must only use string keys")
		}
		field.Fragment = f
	}
	return field, nil
}

// Decode parses a YAML or JSON policy document. Leaves of the form {$function: name} resolve
// against catalog.
func Decode(data []byte, catalog *function.Catalog) (*Policy, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, verrors.InvalidOpts("opts.schema must be an object: %s", err)
	}
	if raw == nil {
		return New(), nil
	}

	if err := resolveFunctions(raw, catalog); err != nil {
		return nil, err
	}
	return FromMap(raw)
}

// Load reads a policy file.
func Load(path string, catalog *function.Catalog) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read policy file %s", path)
	}
	p, err := Decode(data, catalog)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load policy file %s", path)
	}
	return p, nil
}

// resolveFunctions replaces {$function: name} argument leaves in place.
func resolveFunctions(raw map[string]any, catalog *function.Catalog) error {
	var result *multierror.Error

	for typeName, typeValue := range raw {
		fields, ok := typeValue.(map[string]any)
		if !ok {
			continue
		}
		for fieldName, fieldValue := range fields {
			args, ok := fieldValue.(map[string]any)
			if !ok {
				continue
			}
			for argName, argValue := range args {
				leaf, ok := argValue.(map[string]any)
				if !ok {
					continue
				}
				name, ok := leaf[FunctionKey].(string)
				if !ok {
					continue
				}
				fn, found := lookup(catalog, name)
				if !found {
					result = multierror.Append(result, verrors.InvalidOpts(
						"opts.schema.%s.%s.%s references unknown validation function '%s'.",
						typeName, fieldName, argName, name,
					))
					continue
				}
				args[argName] = namedFunc{name: name, fn: fn}
			}
		}
	}

	return result.ErrorOrNil()
}

type namedFunc struct {
	name string
	fn   function.Func
}

func lookup(catalog *function.Catalog, name string) (function.Func, bool) {
	if catalog == nil {
		return nil, false
	}
	return catalog.Get(name)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case fragment.Fragment:
		return m, true
	default:
		return nil, false
	}
}
