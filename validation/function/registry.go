package function

import (
	"maps"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/platform-mesh/golang-commons/logger"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
)

const maxSuggestionDistance = 3

// Table maps argument addresses to validators for one schema generation.
type Table struct {
	fields map[address.Address]map[string]Func
}

// Build registers every binding that resolves against schema. Bindings naming a type, field
// or argument absent from schema are skipped with a warning.
func Build(schema *ast.Schema, bindings []Binding, log *logger.Logger) *Table {
	t := &Table{fields: map[address.Address]map[string]Func{}}

	for _, b := range bindings {
		if b.Fn == nil {
			continue
		}

		def := schema.Types[b.Type]
		if def == nil || def.BuiltIn {
			log.Warn().
				Str("suggestion", suggest(b.Type, slices.Collect(maps.Keys(schema.Types)))).
				Msgf("No GraphQL schema type with key '%s' found. Validation functions will not be run.", b.Type)
			continue
		}

		field := def.Fields.ForName(b.Field)
		if field == nil {
			log.Warn().
				Str("suggestion", suggest(b.Field, fieldNames(def))).
				Msgf("No GraphQL schema field with key '%s.%s' found. Validation functions will not be run.", b.Type, b.Field)
			continue
		}

		if field.Arguments.ForName(b.Argument) == nil {
			log.Warn().
				Str("suggestion", suggest(b.Argument, argumentNames(field))).
				Msgf("No GraphQL schema argument with key '%s.%s.%s' found. Validation function will not be run.", b.Type, b.Field, b.Argument)
			continue
		}

		key := address.ForField(b.Type, b.Field)
		if t.fields[key] == nil {
			t.fields[key] = map[string]Func{}
		}
		t.fields[key][b.Argument] = b.Fn
	}

	return t
}

// ForField returns the validators keyed by argument name, or nil.
func (t *Table) ForField(typeName, fieldName string) map[string]Func {
	return t.fields[address.ForField(typeName, fieldName)]
}

// Lookup returns the validator registered for an argument.
func (t *Table) Lookup(a address.Address) (Func, bool) {
	fn, ok := t.fields[a.Parent()][a.Argument]
	return fn, ok
}

// Fields returns the fields that need a function layer, sorted by key.
func (t *Table) Fields() []address.Address {
	return slices.SortedFunc(maps.Keys(t.fields), func(a, b address.Address) int {
		return strings.Compare(a.Key(), b.Key())
	})
}

// Len returns the number of registered validators.
func (t *Table) Len() int {
	n := 0
	for _, args := range t.fields {
		n += len(args)
	}
	return n
}

func fieldNames(def *ast.Definition) []string {
	names := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		names = append(names, f.Name)
	}
	return names
}

func argumentNames(field *ast.FieldDefinition) []string {
	names := make([]string, 0, len(field.Arguments))
	for _, a := range field.Arguments {
		names = append(names, a.Name)
	}
	return names
}

// suggest returns the closest candidate, or "" when nothing is near enough.
func suggest(input string, candidates []string) string {
	slices.Sort(candidates)
	minDist := -1
	closest := ""
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(input, c)
		if minDist == -1 || dist < minDist {
			minDist = dist
			closest = c
		}
	}
	if minDist > maxSuggestionDistance {
		return ""
	}
	return closest
}
