package function

import (
	"context"
	"errors"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/platform-mesh/golang-commons/logger/testlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
)

const testSDL = `
type Message {
  id: ID!
  text: String
}

type Query {
  message(id: ID, text: String): Message
  messages: [Message]
}
`

func loadSchema(t *testing.T) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "test.graphql", Input: testSDL})
	require.NoError(t, err)
	return schema
}

func noop(context.Context, Metadata, any, graphql.ResolveParams) error { return nil }

func TestBuild(t *testing.T) {
	log := testlogger.New().HideLogOutput().Logger
	schema := loadSchema(t)

	tests := []struct {
		name          string
		bindings      []Binding
		expectedLen   int
		expectedField []address.Address
	}{
		{
			name:          "registers_known_argument",
			bindings:      []Binding{{Type: "Query", Field: "message", Argument: "id", Fn: noop}},
			expectedLen:   1,
			expectedField: []address.Address{address.ForField("Query", "message")},
		},
		{
			name: "groups_arguments_per_field",
			bindings: []Binding{
				{Type: "Query", Field: "message", Argument: "id", Fn: noop},
				{Type: "Query", Field: "message", Argument: "text", Fn: noop},
			},
			expectedLen:   2,
			expectedField: []address.Address{address.ForField("Query", "message")},
		},
		{
			name:          "skips_unknown_type",
			bindings:      []Binding{{Type: "Quer", Field: "message", Argument: "id", Fn: noop}},
			expectedLen:   0,
			expectedField: []address.Address{},
		},
		{
			name:          "skips_unknown_field",
			bindings:      []Binding{{Type: "Query", Field: "mesage", Argument: "id", Fn: noop}},
			expectedLen:   0,
			expectedField: []address.Address{},
		},
		{
			name:          "skips_unknown_argument",
			bindings:      []Binding{{Type: "Query", Field: "message", Argument: "name", Fn: noop}},
			expectedLen:   0,
			expectedField: []address.Address{},
		},
		{
			name:          "skips_builtin_type",
			bindings:      []Binding{{Type: "__Type", Field: "fields", Argument: "includeDeprecated", Fn: noop}},
			expectedLen:   0,
			expectedField: []address.Address{},
		},
		{
			name:          "skips_nil_function",
			bindings:      []Binding{{Type: "Query", Field: "message", Argument: "id"}},
			expectedLen:   0,
			expectedField: []address.Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Build(schema, tt.bindings, log)
			assert.Equal(t, tt.expectedLen, table.Len())
			assert.ElementsMatch(t, tt.expectedField, table.Fields())
		})
	}
}

func TestTable_Lookup(t *testing.T) {
	log := testlogger.New().HideLogOutput().Logger
	table := Build(loadSchema(t), []Binding{{Type: "Query", Field: "message", Argument: "id", Fn: noop}}, log)

	_, ok := table.Lookup(address.ForArgument("Query", "message", "id"))
	assert.True(t, ok)

	_, ok = table.Lookup(address.ForArgument("Query", "message", "text"))
	assert.False(t, ok)

	assert.Len(t, table.ForField("Query", "message"), 1)
	assert.Nil(t, table.ForField("Query", "messages"))
}

func TestSuggest(t *testing.T) {
	candidates := []string{"Query", "Message", "Filters"}

	assert.Equal(t, "Query", suggest("Quer", candidates))
	assert.Equal(t, "Message", suggest("Mesage", candidates))
	assert.Empty(t, suggest("CompletelyDifferent", candidates))
}

func TestDetailOf(t *testing.T) {
	assert.Equal(t, map[string]any{"message": "boom"}, DetailOf(errors.New("boom")))
	assert.Equal(t, map[string]any{"data": "kaboom data"}, DetailOf(Fail("kaboom", map[string]any{"data": "kaboom data"})))
	assert.Equal(t, map[string]any{"message": "kaboom"}, DetailOf(Fail("kaboom", nil)))
}
