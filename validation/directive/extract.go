package directive

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/policy"
	"github.com/platform-mesh/graphql-validation/validation/synth"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// Declared reports whether schema declares the constraint directive.
func Declared(schema *ast.Schema) bool {
	return schema != nil && schema.Directives[Name] != nil
}

// Extract turns every constraint occurrence in schema into a policy. It returns false without
// walking the schema when the directive is not declared.
func Extract(schema *ast.Schema) (*policy.Policy, bool, error) {
	if !Declared(schema) {
		return nil, false, nil
	}

	p := policy.New()
	for _, def := range sortedDefinitions(schema) {
		switch def.Kind {
		case ast.Object, ast.Interface:
			for _, field := range def.Fields {
				for _, arg := range field.Arguments {
					f, ok, err := occurrence(arg.Directives, def.Name, field.Name, arg.Name)
					if err != nil {
						return nil, false, err
					}
					if ok {
						p.SetArgument(def.Name, field.Name, arg.Name, f)
					}
				}
			}
		case ast.InputObject:
			f, ok, err := occurrence(def.Directives, def.Name)
			if err != nil {
				return nil, false, err
			}
			if ok {
				p.SetTypeValidation(def.Name, f)
			}
			for _, field := range def.Fields {
				f, ok, err := occurrence(field.Directives, def.Name, field.Name)
				if err != nil {
					return nil, false, err
				}
				if ok {
					p.SetInputField(def.Name, field.Name, f)
				}
			}
		}
	}
	return p, true, nil
}

// occurrence converts the first constraint directive of list into a fragment.
func occurrence(list ast.DirectiveList, path ...string) (fragment.Fragment, bool, error) {
	d := list.ForName(Name)
	if d == nil {
		return nil, false, nil
	}

	out := fragment.Fragment{}
	var raw string
	for _, arg := range d.Arguments {
		v, err := arg.Value.Value(nil)
		if err != nil {
			return nil, false, verrors.InvalidOpts("@%s on %s: argument %q: %s", Name, dotted(path), arg.Name, err)
		}
		if arg.Name == SchemaArgument {
			s, ok := v.(string)
			if !ok {
				return nil, false, verrors.InvalidOpts("@%s on %s: argument %q must be a string.", Name, dotted(path), arg.Name)
			}
			raw = s
			continue
		}
		out[arg.Name] = v
	}

	if raw != "" {
		custom, err := fragment.ParseJSON(raw)
		if err != nil {
			return nil, false, verrors.InvalidOpts("@%s on %s: %s", Name, dotted(path), err)
		}
		out = out.Merge(custom)
	}
	return out, true, nil
}

func sortedDefinitions(schema *ast.Schema) []*ast.Definition {
	var out []*ast.Definition
	_ = synth.Walk(schema, func(def *ast.Definition) error {
		out = append(out, def)
		return nil
	})
	return out
}

func dotted(path []string) string {
	return strings.Join(path, ".")
}
