package synth

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
)

// InferenceFunc maps a named type to a fragment. Returning false defers to the builtin table.
type InferenceFunc func(named *ast.Definition, nonNull bool) (fragment.Fragment, bool)

var builtinScalars = map[string]string{
	"String":  "string",
	"Int":     "integer",
	"Float":   "number",
	"Boolean": "boolean",
}

// InferJSONSchema returns the shape of a builtin scalar. Nullable scalars also accept null.
// Unknown and custom types infer nothing.
func InferJSONSchema(named *ast.Definition, nonNull bool) fragment.Fragment {
	if named == nil || named.Kind != ast.Scalar {
		return fragment.Fragment{}
	}
	jsonType, ok := builtinScalars[named.Name]
	if !ok {
		return fragment.Fragment{}
	}
	if nonNull {
		return fragment.Fragment{fragment.KeyType: jsonType}
	}
	return fragment.Fragment{fragment.KeyType: []any{jsonType, "null"}}
}

func (s *JSONSchema) infer(named *ast.Definition, nonNull bool) fragment.Fragment {
	if s.Inference != nil && named != nil {
		if f, ok := s.Inference(named, nonNull); ok {
			return f.Clone()
		}
	}
	return InferJSONSchema(named, nonNull)
}
