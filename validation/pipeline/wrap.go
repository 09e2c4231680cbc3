package pipeline

import (
	"context"
	"slices"

	"github.com/graphql-go/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platform-mesh/graphql-validation/validation/metrics"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// Wrap returns a resolver that runs layers before base. Layers run Declarative first, then
// Function, then Directive, whatever order they are passed in. The first failing layer
// returns a ValidationError and nothing after it runs. A nil base resolves the field by
// property lookup.
func Wrap(typeName, fieldName string, base graphql.FieldResolveFn, layers ...Layer) graphql.FieldResolveFn {
	if base == nil {
		base = graphql.DefaultResolveFn
	}

	ordered := Order(layers)
	resolve := base
	for i := len(ordered) - 1; i >= 0; i-- {
		resolve = wrapLayer(typeName, fieldName, ordered[i], resolve)
	}
	return resolve
}

// Order drops nil layers and sorts the rest into execution order. Layers of the same kind keep
// their relative order.
func Order(layers []Layer) []Layer {
	var out []Layer
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b Layer) int {
		return slices.Index(executionOrder, a.Kind()) - slices.Index(executionOrder, b.Kind())
	})
	return out
}

func wrapLayer(typeName, fieldName string, layer Layer, next graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
		}

		ctx, span := otel.Tracer("").Start(ctx, "validation."+string(layer.Kind()), trace.WithAttributes(
			attribute.String("type", typeName),
			attribute.String("field", fieldName),
		))
		details := layer.Validate(ctx, p)
		if len(details) > 0 {
			span.SetStatus(codes.Error, "validation failed")
			span.SetAttributes(attribute.Int("failures", len(details)))
			span.End()
			metrics.Failures.WithLabelValues(string(layer.Kind()), typeName, fieldName).Inc()
			return nil, verrors.NewValidationError(typeName, fieldName, details)
		}
		span.End()

		return next(p)
	}
}
