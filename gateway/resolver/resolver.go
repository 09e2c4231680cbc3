package resolver

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/platform-mesh/golang-commons/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Service struct {
	log  *logger.Logger
	data *Data
}

func New(log *logger.Logger, data *Data) *Service {
	if data == nil {
		data = &Data{}
	}
	return &Service{log: log, data: data}
}

// Resolver returns the fixture resolver of typeName.fieldName, or nil when the data file does not
// mention the field so graphql-go falls back to the property resolver.
func (r *Service) Resolver(typeName, fieldName string) graphql.FieldResolveFn {
	f, ok := r.data.Fields[typeName+"."+fieldName]
	if !ok {
		return nil
	}

	return func(p graphql.ResolveParams) (interface{}, error) {
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
		}
		_, span := otel.Tracer("").Start(ctx, "Resolve", trace.WithAttributes(
			attribute.String("type", typeName),
			attribute.String("field", fieldName),
		))
		defer span.End()

		log, err := r.log.ChildLoggerWithAttributes("type", typeName, "field", fieldName)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to create child logger")
			log = r.log
		}

		switch {
		case f.Echo != "":
			log.Debug().Str("argument", f.Echo).Msg("echoing argument")
			return p.Args[f.Echo], nil
		case f.From != "":
			items := r.filter(f, p.Args)
			log.Debug().Str("collection", f.From).Int("matches", len(items)).Msg("resolved from collection")
			if f.Single {
				if len(items) == 0 {
					return nil, nil
				}
				return items[0], nil
			}
			return items, nil
		default:
			return f.Value, nil
		}
	}
}

func (r *Service) filter(f Field, args map[string]interface{}) []map[string]any {
	items := r.data.Collections[f.From]
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if matches(item, f.Match, args) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item map[string]any, match map[string]string, args map[string]interface{}) bool {
	for argument, key := range match {
		want, ok := args[argument]
		if !ok || want == nil {
			continue
		}
		if fmt.Sprint(item[key]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
