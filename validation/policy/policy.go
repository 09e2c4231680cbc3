package policy

import (
	"maps"
	"slices"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/function"
)

// TypeValidationKey holds the whole-type constraint of an input object.
const TypeValidationKey = "__typeValidation"

// Entry is one argument-level policy value.
type Entry interface {
	entry()
}

// FunctionEntry runs a validator function against the argument.
type FunctionEntry struct {
	Name string
	Fn   function.Func
}

// FragmentEntry constrains the argument with a schema fragment.
type FragmentEntry struct {
	Fragment fragment.Fragment
}

// TypeValidationEntry constrains an input object as a whole.
type TypeValidationEntry struct {
	Fragment fragment.Fragment
}

func (FunctionEntry) entry()       {}
func (FragmentEntry) entry()       {}
func (TypeValidationEntry) entry() {}

// Policy is the ingested validation policy: type -> field -> argument.
type Policy struct {
	Types map[string]*TypePolicy
}

type TypePolicy struct {
	TypeValidation *TypeValidationEntry
	Fields         map[string]*FieldPolicy
}

// FieldPolicy is read as an argument map on object fields and as a constraint fragment on
// input-object fields.
type FieldPolicy struct {
	// Fragment is nil when the entry carries validator functions.
	Fragment  fragment.Fragment
	Arguments map[string]Entry
}

func New() *Policy {
	return &Policy{Types: map[string]*TypePolicy{}}
}

// Type returns the policy for typeName, or nil.
func (p *Policy) Type(typeName string) *TypePolicy {
	if p == nil {
		return nil
	}
	return p.Types[typeName]
}

// Field returns the policy for a field, or nil.
func (p *Policy) Field(typeName, fieldName string) *FieldPolicy {
	t := p.Type(typeName)
	if t == nil {
		return nil
	}
	return t.Fields[fieldName]
}

// ArgumentFragment returns the declared fragment of an argument, or nil.
func (p *Policy) ArgumentFragment(typeName, fieldName, argumentName string) fragment.Fragment {
	f := p.Field(typeName, fieldName)
	if f == nil {
		return nil
	}
	if e, ok := f.Arguments[argumentName].(FragmentEntry); ok {
		return e.Fragment
	}
	return nil
}

// InputFieldFragment returns the declared fragment of an input-object field, or nil.
func (p *Policy) InputFieldFragment(typeName, fieldName string) fragment.Fragment {
	f := p.Field(typeName, fieldName)
	if f == nil {
		return nil
	}
	return f.Fragment
}

// TypeValidation returns the whole-type fragment of an input object, or nil.
func (p *Policy) TypeValidation(typeName string) fragment.Fragment {
	t := p.Type(typeName)
	if t == nil || t.TypeValidation == nil {
		return nil
	}
	return t.TypeValidation.Fragment
}

// SetArgument declares a fragment for an argument.
func (p *Policy) SetArgument(typeName, fieldName, argumentName string, f fragment.Fragment) {
	field := p.ensureField(typeName, fieldName)
	field.Arguments[argumentName] = FragmentEntry{Fragment: f}
}

// SetInputField declares a fragment for an input-object field.
func (p *Policy) SetInputField(typeName, fieldName string, f fragment.Fragment) {
	p.ensureField(typeName, fieldName).Fragment = f
}

// SetTypeValidation declares the whole-type fragment of an input object.
func (p *Policy) SetTypeValidation(typeName string, f fragment.Fragment) {
	p.ensureType(typeName).TypeValidation = &TypeValidationEntry{Fragment: f}
}

// SetFunction attaches a validator to an argument.
func (p *Policy) SetFunction(typeName, fieldName, argumentName string, fn function.Func) {
	field := p.ensureField(typeName, fieldName)
	field.Arguments[argumentName] = FunctionEntry{Fn: fn}
	field.Fragment = nil
}

// FunctionBindings lists every function entry in address order.
func (p *Policy) FunctionBindings() []function.Binding {
	var out []function.Binding
	if p == nil {
		return out
	}
	for _, typeName := range sortedKeys(p.Types) {
		t := p.Types[typeName]
		for _, fieldName := range sortedKeys(t.Fields) {
			f := t.Fields[fieldName]
			for _, argName := range sortedKeys(f.Arguments) {
				if e, ok := f.Arguments[argName].(FunctionEntry); ok {
					out = append(out, function.Binding{Type: typeName, Field: fieldName, Argument: argName, Fn: e.Fn})
				}
			}
		}
	}
	return out
}

// Empty reports whether the policy declares nothing.
func (p *Policy) Empty() bool {
	return p == nil || len(p.Types) == 0
}

// Unresolved lists the declared addresses that do not exist in schema.
func (p *Policy) Unresolved(schema *ast.Schema) []address.Address {
	var out []address.Address
	if p == nil {
		return out
	}
	for _, typeName := range sortedKeys(p.Types) {
		def := schema.Types[typeName]
		if def == nil || def.BuiltIn {
			out = append(out, address.ForType(typeName))
			continue
		}
		t := p.Types[typeName]
		for _, fieldName := range sortedKeys(t.Fields) {
			field := def.Fields.ForName(fieldName)
			if field == nil {
				out = append(out, address.ForField(typeName, fieldName))
				continue
			}
			if def.Kind == ast.InputObject {
				continue
			}
			for _, argName := range sortedKeys(t.Fields[fieldName].Arguments) {
				if field.Arguments.ForName(argName) == nil {
					out = append(out, address.ForArgument(typeName, fieldName, argName))
				}
			}
		}
	}
	return out
}

func (p *Policy) ensureType(typeName string) *TypePolicy {
	if p.Types == nil {
		p.Types = map[string]*TypePolicy{}
	}
	t := p.Types[typeName]
	if t == nil {
		t = &TypePolicy{Fields: map[string]*FieldPolicy{}}
		p.Types[typeName] = t
	}
	return t
}

func (p *Policy) ensureField(typeName, fieldName string) *FieldPolicy {
	t := p.ensureType(typeName)
	f := t.Fields[fieldName]
	if f == nil {
		f = &FieldPolicy{Arguments: map[string]Entry{}}
		t.Fields[fieldName] = f
	}
	return f
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Sorted(maps.Keys(m))
	return keys
}
