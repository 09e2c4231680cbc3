package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/graphql-go/graphql"
	"golang.org/x/sync/errgroup"

	"github.com/platform-mesh/graphql-validation/validation/engine"
	"github.com/platform-mesh/graphql-validation/validation/function"
)

// Kind names a validation layer.
type Kind string

const (
	Declarative Kind = "declarative"
	Function    Kind = "function"
	Directive   Kind = "directive"
)

// executionOrder lists kinds from outermost to innermost.
var executionOrder = []Kind{Declarative, Function, Directive}

// Layer validates the arguments of a resolution. A non-empty result fails the field.
type Layer interface {
	Kind() Kind
	Validate(ctx context.Context, p graphql.ResolveParams) []any
}

// SchemaLayer runs one compiled argument validator.
type SchemaLayer struct {
	kind      Kind
	validator engine.Validator
}

func NewSchemaLayer(kind Kind, v engine.Validator) *SchemaLayer {
	return &SchemaLayer{kind: kind, validator: v}
}

func (l *SchemaLayer) Kind() Kind {
	return l.kind
}

func (l *SchemaLayer) Validate(ctx context.Context, p graphql.ResolveParams) []any {
	return l.validator.Validate(ctx, p.Args)
}

// FunctionLayer runs the validator functions of one field concurrently.
type FunctionLayer struct {
	typeName  string
	fieldName string
	fns       map[string]function.Func
}

func NewFunctionLayer(typeName, fieldName string, fns map[string]function.Func) *FunctionLayer {
	return &FunctionLayer{typeName: typeName, fieldName: fieldName, fns: fns}
}

func (l *FunctionLayer) Kind() Kind {
	return Function
}

// Validate calls the validator of every argument present in p.Args and waits for all of them.
// Details are reported in argument name order.
func (l *FunctionLayer) Validate(ctx context.Context, p graphql.ResolveParams) []any {
	names := slices.Sorted(maps.Keys(l.fns))

	var present []string
	for _, name := range names {
		if _, ok := p.Args[name]; ok {
			present = append(present, name)
		}
	}

	results := make([]error, len(present))
	var eg errgroup.Group
	for i, name := range present {
		meta := function.Metadata{Type: l.typeName, Field: l.fieldName, Argument: name}
		fn := l.fns[name]
		value := p.Args[name]
		eg.Go(func() error {
			results[i] = call(ctx, fn, meta, value, p)
			return nil
		})
	}
	_ = eg.Wait()

	var details []any
	for _, err := range results {
		if err != nil {
			details = append(details, function.DetailOf(err))
		}
	}
	return details
}

func call(ctx context.Context, fn function.Func, meta function.Metadata, value any, p graphql.ResolveParams) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validation function for %s.%s.%s panicked: %v", meta.Type, meta.Field, meta.Argument, r)
		}
	}()
	return fn(ctx, meta, value, p)
}
