package synth

import (
	"maps"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/fragment"
)

// Document is one fragment registered under its address.
type Document struct {
	Address  address.Address
	Fragment fragment.Fragment
}

// Result is everything synthesized for one schema generation.
type Result struct {
	// Documents holds argument bags first, in type and field order, then input types.
	Documents []Document
	// Fields lists every field owning at least one argument.
	Fields []address.Address
	// Definitions holds the JTD type fragments keyed by type name.
	Definitions map[string]fragment.Fragment
}

// Lookup returns the document registered at a.
func (r *Result) Lookup(a address.Address) (fragment.Fragment, bool) {
	for _, d := range r.Documents {
		if d.Address == a {
			return d.Fragment, true
		}
	}
	return nil, false
}

// Synthesizer turns a schema and a policy into fragments.
type Synthesizer interface {
	Synthesize() (*Result, error)
}

// Walk visits every user-defined type in name order.
func Walk(schema *ast.Schema, visit func(def *ast.Definition) error) error {
	names := slices.Sorted(maps.Keys(schema.Types))
	for _, name := range names {
		def := schema.Types[name]
		if def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		if err := visit(def); err != nil {
			return err
		}
	}
	return nil
}

// hasArguments skips the introspection fields the parser adds to the query type.
func hasArguments(def *ast.Definition, field *ast.FieldDefinition) bool {
	return def.Kind == ast.Object && len(field.Arguments) > 0 && !strings.HasPrefix(field.Name, "__")
}

func isInputObject(schema *ast.Schema, t *ast.Type) (*ast.Definition, bool) {
	def := schema.Types[t.Name()]
	return def, def != nil && def.Kind == ast.InputObject
}
