package resolver_test

import (
	"context"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/platform-mesh/golang-commons/logger/testlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-validation/gateway/resolver"
)

const fixture = `
collections:
  messages:
    - {id: "1", text: hello, author: ann}
    - {id: "2", text: world, author: bob}
    - {id: "3", text: again, author: ann}
fields:
  Query.message: {from: messages, match: {id: id}, single: true}
  Query.messages: {from: messages, match: {author: author}}
  Query.version: {value: "1.0"}
  Mutation.addMessage: {echo: input}
`

func TestService_Resolver(t *testing.T) {
	data, err := resolver.DecodeData([]byte(fixture))
	require.NoError(t, err)
	svc := resolver.New(testlogger.New().HideLogOutput().Logger, data)

	tests := []struct {
		name     string
		field    string
		args     map[string]interface{}
		expected interface{}
	}{
		{
			name:     "single_match",
			field:    "Query.message",
			args:     map[string]interface{}{"id": "2"},
			expected: map[string]any{"id": "2", "text": "world", "author": "bob"},
		},
		{
			name:     "single_without_match",
			field:    "Query.message",
			args:     map[string]interface{}{"id": "9"},
			expected: nil,
		},
		{
			name:  "list_filtered",
			field: "Query.messages",
			args:  map[string]interface{}{"author": "ann"},
			expected: []map[string]any{
				{"id": "1", "text": "hello", "author": "ann"},
				{"id": "3", "text": "again", "author": "ann"},
			},
		},
		{
			name:     "absent_argument_keeps_everything",
			field:    "Query.messages",
			args:     map[string]interface{}{},
			expected: data.Collections["messages"],
		},
		{
			name:     "static_value",
			field:    "Query.version",
			expected: "1.0",
		},
		{
			name:     "echo",
			field:    "Mutation.addMessage",
			args:     map[string]interface{}{"input": map[string]interface{}{"text": "x"}},
			expected: map[string]interface{}{"text": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typeName, fieldName, _ := strings.Cut(tt.field, ".")
			fn := svc.Resolver(typeName, fieldName)
			require.NotNil(t, fn)

			got, err := fn(graphql.ResolveParams{Args: tt.args, Context: context.Background()})
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("unknown_field_uses_default", func(t *testing.T) {
		assert.Nil(t, svc.Resolver("Query", "unknown"))
	})
}

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: fixture},
		{name: "empty", input: ""},
		{name: "unknown_collection", input: "fields:\n  Query.a: {from: nope}\n", wantErr: true},
		{name: "malformed", input: "fields: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.DecodeData([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadData_EmptyPath(t *testing.T) {
	data, err := resolver.LoadData("")
	require.NoError(t, err)
	assert.Empty(t, data.Fields)
}
