package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/jtd"
	"github.com/platform-mesh/graphql-validation/validation/synth"
)

// JTD compiles JSON Type Definition fragments. Every fragment shares the definitions map.
type JTD struct {
	opts        Options
	definitions map[string]fragment.Fragment
	docs        []synth.Document
}

func NewJTD(opts Options, definitions map[string]fragment.Fragment) *JTD {
	return &JTD{opts: opts, definitions: definitions}
}

func (e *JTD) Add(doc synth.Document) {
	e.docs = append(e.docs, doc)
}

// Compile checks every fragment against RFC 8927. The first failure aborts.
func (e *JTD) Compile() (*Set, error) {
	definitions := map[string]any{}
	for name, def := range e.definitions {
		definitions[name] = map[string]any(def.Without(fragment.KeyID))
	}

	set := newSet()
	for _, doc := range e.docs {
		root := doc.Fragment.Without(fragment.KeyID)
		if existing, ok := root.Map(fragment.KeyDefinitions); ok {
			root[fragment.KeyDefinitions] = map[string]any(fragment.Fragment(definitions).Merge(existing))
		} else {
			root[fragment.KeyDefinitions] = definitions
		}

		schema := jtd.Schema(root)
		if err := jtd.Check(schema); err != nil {
			return nil, errors.Wrapf(err, "failed to compile validation schema %s", doc.Address.Dotted())
		}
		set.validators[doc.Address] = &jtdValidator{schema: schema, opts: e.opts}
	}
	return set, nil
}

type jtdValidator struct {
	schema jtd.Schema
	opts   Options
}

func (v *jtdValidator) Validate(_ context.Context, args map[string]any) []any {
	if args == nil {
		args = map[string]any{}
	}
	data, err := normalize(args)
	if err != nil {
		return failure(err)
	}

	maxErrors := v.opts.MaxErrors
	if !v.opts.AllErrors {
		maxErrors = 1
	}
	errs, err := jtd.Validate(v.schema, data, jtd.Options{MaxDepth: v.opts.MaxDepth, MaxErrors: maxErrors})
	if err != nil {
		return failure(err)
	}

	var details []any
	for _, e := range errs {
		details = append(details, map[string]any{
			"instancePath": e.InstancePointer(),
			"schemaPath":   "#" + e.SchemaPointer(),
			"keyword":      e.Keyword,
			"message":      e.Message,
		})
	}
	return details
}
