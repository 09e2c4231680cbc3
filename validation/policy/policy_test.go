package policy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

func alwaysFail(context.Context, function.Metadata, any, graphql.ResolveParams) error {
	return function.Fail("kaboom", nil)
}

func TestFromMap(t *testing.T) {
	p, err := FromMap(map[string]any{
		"Filters": map[string]any{
			TypeValidationKey: map[string]any{"minProperties": 1},
			"text":            map[string]any{"type": "string", "minLength": 1},
		},
		"Query": map[string]any{
			"message": map[string]any{
				"id":   map[string]any{"minLength": 1},
				"text": alwaysFail,
			},
			"messages": map[string]any{
				"filters": fragment.Fragment{"minProperties": 2},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, fragment.Fragment{"minProperties": 1}, p.TypeValidation("Filters"))
	assert.Equal(t, fragment.Fragment{"type": "string", "minLength": 1}, p.InputFieldFragment("Filters", "text"))
	assert.Equal(t, fragment.Fragment{"minLength": 1}, p.ArgumentFragment("Query", "message", "id"))
	assert.Equal(t, fragment.Fragment{"minProperties": 2}, p.ArgumentFragment("Query", "messages", "filters"))
	assert.Nil(t, p.ArgumentFragment("Query", "message", "text"))
	assert.Nil(t, p.InputFieldFragment("Query", "message"), "entries holding functions carry no fragment")

	_, isFunc := p.Field("Query", "message").Arguments["text"].(FunctionEntry)
	assert.True(t, isFunc)

	bindings := p.FunctionBindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, "Query", bindings[0].Type)
	assert.Equal(t, "message", bindings[0].Field)
	assert.Equal(t, "text", bindings[0].Argument)
}

func TestFromMap_InvalidShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		messages []string
	}{
		{
			name:     "type_not_object",
			raw:      map[string]any{"Query": "nope"},
			messages: []string{"Invalid options: opts.schema.Query must be an object."},
		},
		{
			name:     "type_is_nil",
			raw:      map[string]any{"Query": nil},
			messages: []string{"Invalid options: opts.schema.Query must be an object."},
		},
		{
			name: "field_is_function",
			raw:  map[string]any{"Query": map[string]any{"message": alwaysFail}},
			messages: []string{
				"Invalid options: opts.schema.Query.message cannot be a function. Only field arguments currently support functional validators.",
			},
		},
		{
			name: "reports_every_problem",
			raw: map[string]any{
				"A": 1,
				"B": map[string]any{"f": nil},
			},
			messages: []string{
				"Invalid options: opts.schema.A must be an object.",
				"Invalid options: opts.schema.B.f cannot be a function. Only field arguments currently support functional validators.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, verrors.ErrInvalidOpts)
			for _, msg := range tt.messages {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "policy.yaml"), function.NewCatalog())
	require.NoError(t, err)

	assert.Equal(t, fragment.Fragment{"minProperties": 1}, p.TypeValidation("Filters"))
	assert.Equal(t, fragment.Fragment{"type": "string", "minLength": 1}, p.ArgumentFragment("Query", "message", "id"))

	entry, ok := p.Field("Query", "messages").Arguments["owner"].(FunctionEntry)
	require.True(t, ok)
	assert.Equal(t, "uuid", entry.Name)
	assert.NotNil(t, entry.Fn)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		expectError bool
		empty       bool
	}{
		{name: "empty_document", data: "", empty: true},
		{name: "json_document", data: `{"Query": {"message": {"id": {"minLength": 1}}}}`},
		{name: "scalar_document", data: `"nope"`, expectError: true},
		{name: "unknown_function", data: "Query:\n  message:\n    id:\n      $function: missing\n", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.data), function.NewCatalog())
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, verrors.ErrInvalidOpts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.empty, p.Empty())
		})
	}
}

func TestPolicy_Unresolved(t *testing.T) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Input: `
input Filters { text: String }
type Query { message(id: ID, filters: Filters): String }
`})
	require.NoError(t, err)

	p := New()
	p.SetArgument("Query", "message", "id", fragment.Fragment{"minLength": 1})
	p.SetArgument("Query", "message", "name", fragment.Fragment{"minLength": 1})
	p.SetArgument("Query", "messages", "id", fragment.Fragment{"minLength": 1})
	p.SetInputField("Filters", "text", fragment.Fragment{"minLength": 1})
	p.SetInputField("Filters", "body", fragment.Fragment{"minLength": 1})
	p.SetTypeValidation("Missing", fragment.Fragment{"minProperties": 1})

	assert.Equal(t, []address.Address{
		address.ForField("Filters", "body"),
		address.ForType("Missing"),
		address.ForArgument("Query", "message", "name"),
		address.ForField("Query", "messages"),
	}, p.Unresolved(schema))
}

func TestPolicy_NilSafe(t *testing.T) {
	var p *Policy
	assert.True(t, p.Empty())
	assert.Nil(t, p.Type("Query"))
	assert.Nil(t, p.ArgumentFragment("Query", "message", "id"))
	assert.Empty(t, p.FunctionBindings())
}
