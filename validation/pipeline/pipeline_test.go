package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

type recordingLayer struct {
	kind    Kind
	details []any
	calls   *[]Kind
	mu      *sync.Mutex
}

func (l recordingLayer) Kind() Kind {
	return l.kind
}

func (l recordingLayer) Validate(context.Context, graphql.ResolveParams) []any {
	l.mu.Lock()
	*l.calls = append(*l.calls, l.kind)
	l.mu.Unlock()
	return l.details
}

func newRecorder() (*[]Kind, *sync.Mutex) {
	return &[]Kind{}, &sync.Mutex{}
}

func TestWrap_Order(t *testing.T) {
	calls, mu := newRecorder()
	baseCalled := false
	base := func(p graphql.ResolveParams) (interface{}, error) {
		baseCalled = true
		return "ok", nil
	}

	resolve := Wrap("Query", "message", base,
		recordingLayer{kind: Directive, calls: calls, mu: mu},
		recordingLayer{kind: Declarative, calls: calls, mu: mu},
		recordingLayer{kind: Function, calls: calls, mu: mu},
	)

	got, err := resolve(graphql.ResolveParams{Context: context.Background()})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.True(t, baseCalled)
	assert.Equal(t, []Kind{Declarative, Function, Directive}, *calls)
}

func TestWrap_ShortCircuit(t *testing.T) {
	tests := []struct {
		name      string
		failing   Kind
		wantCalls []Kind
	}{
		{name: "declarative_fails", failing: Declarative, wantCalls: []Kind{Declarative}},
		{name: "function_fails", failing: Function, wantCalls: []Kind{Declarative, Function}},
		{name: "directive_fails", failing: Directive, wantCalls: []Kind{Declarative, Function, Directive}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, mu := newRecorder()
			var layers []Layer
			for _, k := range executionOrder {
				l := recordingLayer{kind: k, calls: calls, mu: mu}
				if k == tt.failing {
					l.details = []any{map[string]any{"message": string(k)}}
				}
				layers = append(layers, l)
			}

			baseCalled := false
			resolve := Wrap("Query", "message", func(graphql.ResolveParams) (interface{}, error) {
				baseCalled = true
				return nil, nil
			}, layers...)

			got, err := resolve(graphql.ResolveParams{})
			assert.Nil(t, got)
			require.Error(t, err)
			assert.False(t, baseCalled)
			assert.Equal(t, tt.wantCalls, *calls)

			var ve *verrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "Failed Validation on arguments for field 'Query.message'", ve.Error())
			assert.Equal(t, []any{map[string]any{"message": string(tt.failing)}}, ve.Details())
		})
	}
}

func TestWrap_NilBaseAndLayers(t *testing.T) {
	resolve := Wrap("Message", "text", nil, nil)

	got, err := resolve(graphql.ResolveParams{Source: map[string]interface{}{"text": "hello"}, Info: graphql.ResolveInfo{FieldName: "text"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestFunctionLayer(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(fail bool) function.Func {
		return func(ctx context.Context, meta function.Metadata, value any, p graphql.ResolveParams) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			if fail {
				return function.Fail("bad "+meta.Argument, map[string]any{"argument": meta.Argument, "value": value})
			}
			return nil
		}
	}

	var seen []function.Metadata
	var mu sync.Mutex
	record := func(ctx context.Context, meta function.Metadata, value any, p graphql.ResolveParams) error {
		mu.Lock()
		seen = append(seen, meta)
		mu.Unlock()
		return errors.New("plain")
	}

	layer := NewFunctionLayer("Query", "message", map[string]function.Func{
		"b":      slow(true),
		"a":      slow(true),
		"c":      slow(false),
		"absent": record,
		"plain":  record,
		"boom": func(context.Context, function.Metadata, any, graphql.ResolveParams) error {
			panic("kaboom")
		},
	})
	assert.Equal(t, Function, layer.Kind())

	details := layer.Validate(context.Background(), graphql.ResolveParams{Args: map[string]interface{}{
		"a": 1, "b": 2, "c": 3, "plain": "x", "boom": true,
	}})

	require.Len(t, details, 4)
	assert.Equal(t, map[string]any{"argument": "a", "value": 1}, details[0])
	assert.Equal(t, map[string]any{"argument": "b", "value": 2}, details[1])
	assert.Contains(t, details[2].(map[string]any)["message"], "panicked")
	assert.Equal(t, map[string]any{"message": "plain"}, details[3])

	assert.Equal(t, []function.Metadata{{Type: "Query", Field: "message", Argument: "plain"}}, seen, "validators of absent arguments never run")
	assert.Greater(t, peak.Load(), int32(1), "validators run concurrently")
}

func TestWrap_ExecutesThroughGraphQL(t *testing.T) {
	failing := recordingLayer{kind: Declarative, details: []any{map[string]any{"message": "too short"}}}
	failing.calls, failing.mu = newRecorder()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"message": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.ID}},
				Resolve: Wrap("Query", "message", func(graphql.ResolveParams) (interface{}, error) {
					return "hello", nil
				}, failing),
			},
		},
	})
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: `{ message(id: "x") }`, Context: context.Background()})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Failed Validation on arguments for field 'Query.message'", result.Errors[0].Message)
	assert.Equal(t, verrors.CodeFailedValidation, result.Errors[0].Extensions["code"])
	assert.Equal(t, verrors.ValidationErrorName, result.Errors[0].Extensions["name"])
	assert.Equal(t, []any{map[string]any{"message": "too short"}}, result.Errors[0].Extensions["details"])
	assert.Equal(t, map[string]interface{}{"message": nil}, result.Data)
}
