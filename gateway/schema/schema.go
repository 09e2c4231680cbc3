package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/platform-mesh/golang-commons/logger"
	"github.com/vektah/gqlparser/v2/ast"
)

// TypenameKey lets fixture data pick the concrete type behind an interface or union.
const TypenameKey = "__typename"

// Provider hands out the resolver of a field, or nil for the default property resolver.
type Provider interface {
	Resolver(typeName, fieldName string) graphql.FieldResolveFn
}

// Builder turns a parsed SDL into an executable graphql-go schema. Every Build creates fresh
// type objects, so resolvers installed on one schema never leak into the next.
type Builder struct {
	log      *logger.Logger
	resolver Provider
	sdl      *ast.Schema

	// typesCache stores generated output types so recursive references resolve to one object.
	typesCache map[string]graphql.Type
	// inputTypesCache stores generated input types for the same reason.
	inputTypesCache map[string]graphql.Input
}

func New(log *logger.Logger, resolverProvider Provider) *Builder {
	return &Builder{log: log, resolver: resolverProvider}
}

// Build returns an executable schema for sdl. Builds must not run concurrently.
func (b *Builder) Build(sdl *ast.Schema) (*graphql.Schema, error) {
	if sdl == nil || sdl.Query == nil {
		return nil, errors.New("schema must define a query type")
	}

	b.sdl = sdl
	b.typesCache = map[string]graphql.Type{}
	b.inputTypesCache = map[string]graphql.Input{}

	cfg := graphql.SchemaConfig{}
	var err error
	if cfg.Query, err = b.rootObject(sdl.Query); err != nil {
		return nil, err
	}
	if cfg.Mutation, err = b.rootObject(sdl.Mutation); err != nil {
		return nil, err
	}
	if cfg.Subscription, err = b.rootObject(sdl.Subscription); err != nil {
		return nil, err
	}

	// Objects only reachable through interfaces must still be part of the type map.
	names := slices.Sorted(maps.Keys(sdl.Types))
	for _, name := range names {
		def := sdl.Types[name]
		if def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		if def.Kind == ast.Object || def.Kind == ast.InputObject {
			continue
		}
		t, err := b.namedType(name)
		if err != nil {
			return nil, err
		}
		cfg.Types = append(cfg.Types, t)
	}
	for _, name := range names {
		def := sdl.Types[name]
		if def.Kind == ast.Object && !def.BuiltIn && !strings.HasPrefix(name, "__") {
			t, err := b.namedType(name)
			if err != nil {
				return nil, err
			}
			cfg.Types = append(cfg.Types, t)
		}
	}

	newSchema, err := graphql.NewSchema(cfg)
	if err != nil {
		b.log.Error().Err(err).Msg("Error creating GraphQL schema")
		return nil, errors.Wrap(err, "failed to build executable schema")
	}
	return &newSchema, nil
}

func (b *Builder) rootObject(def *ast.Definition) (*graphql.Object, error) {
	if def == nil {
		return nil, nil
	}
	t, err := b.namedType(def.Name)
	if err != nil {
		return nil, err
	}
	obj, ok := t.(*graphql.Object)
	if !ok {
		return nil, fmt.Errorf("root type %s must be an object", def.Name)
	}
	return obj, nil
}

func (b *Builder) namedType(name string) (graphql.Type, error) {
	if s, ok := builtinScalars[name]; ok {
		return s, nil
	}
	if t, ok := b.typesCache[name]; ok {
		return t, nil
	}
	if t, ok := b.inputTypesCache[name]; ok {
		return t, nil
	}

	def, ok := b.sdl.Types[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", name)
	}

	switch def.Kind {
	case ast.Scalar:
		s := passthroughScalar(def.Name, def.Description)
		b.typesCache[name] = s
		return s, nil
	case ast.Enum:
		values := graphql.EnumValueConfigMap{}
		for _, v := range def.EnumValues {
			values[v.Name] = &graphql.EnumValueConfig{Value: v.Name, Description: v.Description}
		}
		e := graphql.NewEnum(graphql.EnumConfig{Name: def.Name, Description: def.Description, Values: values})
		b.typesCache[name] = e
		return e, nil
	case ast.Object:
		return b.object(def), nil
	case ast.Interface:
		i := graphql.NewInterface(graphql.InterfaceConfig{
			Name:        def.Name,
			Description: def.Description,
			Fields:      b.fieldsThunk(def),
			ResolveType: b.resolveType(def.Name),
		})
		b.typesCache[name] = i
		return i, nil
	case ast.Union:
		u := graphql.NewUnion(graphql.UnionConfig{
			Name:        def.Name,
			Description: def.Description,
			Types:       graphql.UnionTypesThunk(func() []*graphql.Object { return b.objects(def.Types) }),
			ResolveType: b.resolveType(def.Name),
		})
		b.typesCache[name] = u
		return u, nil
	case ast.InputObject:
		in := graphql.NewInputObject(graphql.InputObjectConfig{
			Name:        def.Name,
			Description: def.Description,
			Fields:      b.inputFieldsThunk(def),
		})
		b.inputTypesCache[name] = in
		return in, nil
	default:
		return nil, fmt.Errorf("unsupported kind %s for type %s", def.Kind, name)
	}
}

func (b *Builder) object(def *ast.Definition) *graphql.Object {
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Interfaces: graphql.InterfacesThunk(func() []*graphql.Interface {
			var out []*graphql.Interface
			for _, name := range def.Interfaces {
				if t, err := b.namedType(name); err == nil {
					if i, ok := t.(*graphql.Interface); ok {
						out = append(out, i)
					}
				}
			}
			return out
		}),
		Fields: b.fieldsThunk(def),
	})
	b.typesCache[def.Name] = obj
	return obj
}

func (b *Builder) objects(names []string) []*graphql.Object {
	var out []*graphql.Object
	for _, name := range names {
		if t, err := b.namedType(name); err == nil {
			if o, ok := t.(*graphql.Object); ok {
				out = append(out, o)
			}
		}
	}
	return out
}

func (b *Builder) fieldsThunk(def *ast.Definition) graphql.FieldsThunk {
	return func() graphql.Fields {
		fields := graphql.Fields{}
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			out, err := b.typeRef(f.Type)
			if err != nil {
				b.log.Error().Err(err).Str("type", def.Name).Str("field", f.Name).Msg("skipping field with unknown type")
				continue
			}

			args := graphql.FieldConfigArgument{}
			for _, a := range f.Arguments {
				in, err := b.typeRef(a.Type)
				if err != nil {
					b.log.Error().Err(err).Str("type", def.Name).Str("field", f.Name).Str("argument", a.Name).Msg("skipping argument with unknown type")
					continue
				}
				args[a.Name] = &graphql.ArgumentConfig{
					Type:         in.(graphql.Input),
					DefaultValue: defaultValue(a.DefaultValue),
					Description:  a.Description,
				}
			}

			field := &graphql.Field{
				Name:              f.Name,
				Description:       f.Description,
				Type:              out.(graphql.Output),
				Args:              args,
				DeprecationReason: deprecation(f.Directives),
			}
			if def.Kind == ast.Object && b.resolver != nil {
				field.Resolve = b.resolver.Resolver(def.Name, f.Name)
			}
			fields[f.Name] = field
		}
		return fields
	}
}

func (b *Builder) inputFieldsThunk(def *ast.Definition) graphql.InputObjectConfigFieldMapThunk {
	return func() graphql.InputObjectConfigFieldMap {
		fields := graphql.InputObjectConfigFieldMap{}
		for _, f := range def.Fields {
			in, err := b.typeRef(f.Type)
			if err != nil {
				b.log.Error().Err(err).Str("type", def.Name).Str("field", f.Name).Msg("skipping input field with unknown type")
				continue
			}
			fields[f.Name] = &graphql.InputObjectFieldConfig{
				Type:         in.(graphql.Input),
				DefaultValue: defaultValue(f.DefaultValue),
				Description:  f.Description,
			}
		}
		return fields
	}
}

// typeRef wraps the named type in the list and non-null modifiers of t.
func (b *Builder) typeRef(t *ast.Type) (graphql.Type, error) {
	var (
		out graphql.Type
		err error
	)
	if t.Elem != nil {
		elem, err := b.typeRef(t.Elem)
		if err != nil {
			return nil, err
		}
		out = graphql.NewList(elem)
	} else if out, err = b.namedType(t.NamedType); err != nil {
		return nil, err
	}
	if t.NonNull {
		out = graphql.NewNonNull(out)
	}
	return out, nil
}

// resolveType is bound to the types of the running Build, not to whatever b holds later.
func (b *Builder) resolveType(abstract string) graphql.ResolveTypeFn {
	cache, possible := b.typesCache, b.sdl.PossibleTypes[abstract]
	return func(p graphql.ResolveTypeParams) *graphql.Object {
		if m, ok := p.Value.(map[string]interface{}); ok {
			if name, ok := m[TypenameKey].(string); ok {
				if o, ok := cache[name].(*graphql.Object); ok {
					return o
				}
			}
		}
		if len(possible) == 0 {
			return nil
		}
		o, _ := cache[possible[0].Name].(*graphql.Object)
		return o
	}
}

func deprecation(directives ast.DirectiveList) string {
	d := directives.ForName("deprecated")
	if d == nil {
		return ""
	}
	if reason := d.Arguments.ForName("reason"); reason != nil && reason.Value != nil {
		return reason.Value.Raw
	}
	return "No longer supported"
}

// defaultValue converts an SDL literal into the Go value graphql-go hands to resolvers.
func defaultValue(v *ast.Value) interface{} {
	if v == nil {
		return nil
	}
	value, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return normalizeInts(value)
}

func normalizeInts(v interface{}) interface{} {
	switch val := v.(type) {
	case int64:
		return int(val)
	case []interface{}:
		for i := range val {
			val[i] = normalizeInts(val[i])
		}
		return val
	case map[string]interface{}:
		for k := range val {
			val[k] = normalizeInts(val[k])
		}
		return val
	default:
		return v
	}
}
