package synth

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/policy"
)

// JTD synthesizes JSON Type Definition fragments. Input objects become entries of the shared
// definitions map and are referenced by name.
type JTD struct {
	Schema *ast.Schema
	Policy *policy.Policy
}

func (s *JTD) Synthesize() (*Result, error) {
	result := &Result{Definitions: map[string]fragment.Fragment{}}
	var inputTypes []Document

	err := Walk(s.Schema, func(def *ast.Definition) error {
		switch def.Kind {
		case ast.Object:
			for _, field := range def.Fields {
				if !hasArguments(def, field) {
					continue
				}
				addr := address.ForField(def.Name, field.Name)
				result.Documents = append(result.Documents, Document{Address: addr, Fragment: s.argumentBag(def, field)})
				result.Fields = append(result.Fields, addr)
			}
		case ast.InputObject:
			built := s.inputType(def)
			result.Definitions[def.Name] = built
			inputTypes = append(inputTypes, Document{Address: address.ForType(def.Name), Fragment: built})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Documents = append(result.Documents, inputTypes...)
	return result, nil
}

func (s *JTD) argumentBag(def *ast.Definition, field *ast.FieldDefinition) fragment.Fragment {
	properties := map[string]any{}
	for _, arg := range field.Arguments {
		declared := s.Policy.ArgumentFragment(def.Name, field.Name, arg.Name)
		properties[arg.Name] = map[string]any(s.fragmentFor(arg.Type, declared))
	}
	return fragment.Fragment{fragment.KeyOptionalProperties: properties}
}

func (s *JTD) inputType(def *ast.Definition) fragment.Fragment {
	if tv := s.Policy.TypeValidation(def.Name); tv != nil {
		return tv.Clone()
	}

	properties := map[string]any{}
	for _, field := range def.Fields {
		built := s.fragmentFor(field.Type, s.Policy.InputFieldFragment(def.Name, field.Name))
		if len(built) == 0 {
			continue
		}
		properties[field.Name] = map[string]any(built)
	}

	return fragment.Fragment{
		fragment.KeyOptionalProperties:   properties,
		fragment.KeyAdditionalProperties: true,
	}
}

func (s *JTD) fragmentFor(t *ast.Type, declared fragment.Fragment) fragment.Fragment {
	built := fragment.Fragment{}

	if named, ok := isInputObject(s.Schema, t); ok {
		ref := map[string]any{fragment.KeyJTDRef: named.Name}
		if t.Elem != nil {
			built[fragment.KeyElements] = ref
		} else {
			built = ref
		}
	}

	if declared != nil {
		built = built.Merge(declared)
	}
	return built
}
