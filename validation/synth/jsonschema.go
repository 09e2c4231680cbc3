package synth

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/policy"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// JSONSchema synthesizes JSON-Schema fragments. Input objects are referenced by $ref, never
// inlined, so cyclic input types terminate.
type JSONSchema struct {
	Schema    *ast.Schema
	Policy    *policy.Policy
	Inference InferenceFunc
	BaseURL   string
}

func (s *JSONSchema) Synthesize() (*Result, error) {
	result := &Result{}
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
			doc, err := s.inputType(def)
			if err != nil {
				return err
			}
			inputTypes = append(inputTypes, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Documents = append(result.Documents, inputTypes...)
	return result, nil
}

func (s *JSONSchema) argumentBag(def *ast.Definition, field *ast.FieldDefinition) fragment.Fragment {
	properties := map[string]any{}
	for _, arg := range field.Arguments {
		id := address.ForArgument(def.Name, field.Name, arg.Name).URL(s.BaseURL)
		declared := s.Policy.ArgumentFragment(def.Name, field.Name, arg.Name)
		properties[arg.Name] = map[string]any(s.fragmentFor(arg.Type, declared, id))
	}

	return fragment.Fragment{
		fragment.KeyID:         address.ForField(def.Name, field.Name).URL(s.BaseURL),
		fragment.KeyType:       "object",
		fragment.KeyProperties: properties,
	}
}

func (s *JSONSchema) inputType(def *ast.Definition) (Document, error) {
	addr := address.ForType(def.Name)
	properties := map[string]any{}

	for _, field := range def.Fields {
		id := address.ForField(def.Name, field.Name).URL(s.BaseURL)
		declared := s.Policy.InputFieldFragment(def.Name, field.Name)
		built := s.fragmentFor(field.Type, declared, id)

		if !built.Has(fragment.KeyType) {
			if declared != nil {
				return Document{}, verrors.FieldTypeUndefined(id)
			}
			continue
		}
		properties[field.Name] = map[string]any(built)
	}

	built := fragment.Fragment{
		fragment.KeyID:         addr.URL(s.BaseURL),
		fragment.KeyType:       "object",
		fragment.KeyProperties: properties,
	}
	if tv := s.Policy.TypeValidation(def.Name); tv != nil {
		built = tv.Merge(built)
	}
	return Document{Address: addr, Fragment: built}, nil
}

// fragmentFor merges the inferred shape of t with declared. Declared keys win, except items
// which are merged key by key.
func (s *JSONSchema) fragmentFor(t *ast.Type, declared fragment.Fragment, id string) fragment.Fragment {
	built := s.shape(t, true)

	if declared != nil {
		inferredItems, hasInferred := built.Map(fragment.KeyItems)
		declaredItems, hasDeclared := declared.Map(fragment.KeyItems)

		built = built.Merge(declared)
		if hasInferred && hasDeclared {
			built[fragment.KeyItems] = map[string]any(inferredItems.Merge(declaredItems))
		}
	}

	built[fragment.KeyID] = id
	return built
}

func (s *JSONSchema) shape(t *ast.Type, top bool) fragment.Fragment {
	if t.Elem != nil {
		return fragment.Fragment{
			fragment.KeyType:  "array",
			fragment.KeyItems: map[string]any(s.shape(t.Elem, false)),
		}
	}

	if named, ok := isInputObject(s.Schema, t); ok {
		ref := fragment.Fragment{fragment.KeyRef: address.ForType(named.Name).URL(s.BaseURL)}
		if top {
			ref[fragment.KeyType] = "object"
		}
		return ref
	}

	return s.infer(s.Schema.Types[t.Name()], t.NonNull)
}
