package schema

import (
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

var builtinScalars = map[string]*graphql.Scalar{
	"Int":     graphql.Int,
	"Float":   graphql.Float,
	"String":  graphql.String,
	"Boolean": graphql.Boolean,
	"ID":      graphql.ID,
}

// passthroughScalar backs every custom scalar declared in the SDL. Values travel as plain JSON.
func passthroughScalar(name, description string) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        name,
		Description: description,
		Serialize: func(value interface{}) interface{} {
			return value
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			return literal(valueAST)
		},
	})
}

func literal(valueAST ast.Value) interface{} {
	switch value := valueAST.(type) {
	case *ast.ObjectValue:
		result := map[string]interface{}{}
		for _, field := range value.Fields {
			result[field.Name.Value] = literal(field.Value)
		}
		return result
	case *ast.ListValue:
		result := make([]interface{}, 0, len(value.Values))
		for _, v := range value.Values {
			result = append(result, literal(v))
		}
		return result
	case *ast.IntValue:
		if i, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
			return i
		}
		return nil
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(value.Value, 64); err == nil {
			return f
		}
		return nil
	case *ast.StringValue:
		return value.Value
	case *ast.BooleanValue:
		return value.Value
	case *ast.EnumValue:
		return value.Value
	default:
		return nil // to tell GraphQL that the value is invalid
	}
}
