package schema_test

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/platform-mesh/golang-commons/logger/testlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/gateway/schema"
)

const sdl = `
scalar JSON

enum Color { RED GREEN }

interface Node { id: ID! }

type Message implements Node {
  id: ID!
  text: String
  meta: JSON
}

type Note implements Node {
  id: ID!
  body: String
}

union Item = Message | Note

input Filters {
  text: String
  color: Color = RED
}

type Query {
  echo(first: Int = 10, color: Color, filters: Filters, raw: JSON): JSON
  node: Node
  items: [Item!]!
  old: String @deprecated(reason: "use echo")
}
`

type providerFunc map[string]graphql.FieldResolveFn

func (p providerFunc) Resolver(typeName, fieldName string) graphql.FieldResolveFn {
	return p[typeName+"."+fieldName]
}

func build(t *testing.T, provider schema.Provider) *graphql.Schema {
	t.Helper()
	parsed, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	require.NoError(t, err)

	log := testlogger.New().HideLogOutput().Logger
	exec, err := schema.New(log, provider).Build(parsed)
	require.NoError(t, err)
	return exec
}

func TestBuilder_Build(t *testing.T) {
	echo := func(p graphql.ResolveParams) (interface{}, error) {
		return p.Args, nil
	}
	provider := providerFunc{
		"Query.echo": echo,
		"Query.node": func(p graphql.ResolveParams) (interface{}, error) {
			return map[string]interface{}{schema.TypenameKey: "Note", "id": "n1", "body": "hi"}, nil
		},
		"Query.items": func(p graphql.ResolveParams) (interface{}, error) {
			return []interface{}{
				map[string]interface{}{schema.TypenameKey: "Message", "id": "m1", "text": "hello"},
				map[string]interface{}{"id": "m2", "text": "first possible type"},
			}, nil
		},
	}
	exec := build(t, provider)

	tests := []struct {
		name     string
		query    string
		expected interface{}
	}{
		{
			name:  "argument_defaults",
			query: `{ echo }`,
			expected: map[string]interface{}{
				"echo": map[string]interface{}{"first": 10},
			},
		},
		{
			name:  "enum_input_object_and_custom_scalar",
			query: `{ echo(first: 2, color: GREEN, filters: {text: "a"}, raw: {a: [1, "b"]}) }`,
			expected: map[string]interface{}{
				"echo": map[string]interface{}{
					"first":   2,
					"color":   "GREEN",
					"filters": map[string]interface{}{"text": "a", "color": "RED"},
					"raw":     map[string]interface{}{"a": []interface{}{int64(1), "b"}},
				},
			},
		},
		{
			name:  "interface_resolved_by_typename",
			query: `{ node { id ... on Note { body } } }`,
			expected: map[string]interface{}{
				"node": map[string]interface{}{"id": "n1", "body": "hi"},
			},
		},
		{
			name:  "union_members",
			query: `{ items { ... on Message { id text } } }`,
			expected: map[string]interface{}{
				"items": []interface{}{
					map[string]interface{}{"id": "m1", "text": "hello"},
					map[string]interface{}{"id": "m2", "text": "first possible type"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := graphql.Do(graphql.Params{Schema: *exec, RequestString: tt.query, Context: context.Background()})
			require.Empty(t, result.Errors)
			assert.Equal(t, tt.expected, result.Data)
		})
	}
}

func TestBuilder_DefaultResolver(t *testing.T) {
	exec := build(t, providerFunc{})

	result := graphql.Do(graphql.Params{
		Schema:        *exec,
		RequestString: `{ old }`,
		RootObject:    map[string]interface{}{"old": "from root"},
	})
	require.Empty(t, result.Errors)
	assert.Equal(t, map[string]interface{}{"old": "from root"}, result.Data)

	fd := exec.QueryType().Fields()["old"]
	assert.Equal(t, "use echo", fd.DeprecationReason)
}

func TestBuilder_FreshObjects(t *testing.T) {
	first := build(t, providerFunc{})
	second := build(t, providerFunc{})

	assert.NotSame(t, first.QueryType(), second.QueryType())
	assert.NotSame(t, first.QueryType().Fields()["echo"], second.QueryType().Fields()["echo"])
	assert.Same(t, first.QueryType().Fields()["echo"], first.QueryType().Fields()["echo"])
}

func TestBuilder_MissingQuery(t *testing.T) {
	log := testlogger.New().HideLogOutput().Logger
	_, err := schema.New(log, nil).Build(&ast.Schema{Types: map[string]*ast.Definition{}})
	assert.Error(t, err)
}
