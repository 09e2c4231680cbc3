package directive

import (
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Name of the constraint directive.
const Name = "constraint"

// SchemaArgument carries a raw JSON-Schema fragment merged over the other arguments.
const SchemaArgument = "schema"

// TypeDefs declares the constraint directive. Splice it into a schema to enable directive validation.
const TypeDefs = `"""JSON Schema constraint directive."""
directive @constraint(
  """JSON Schema 'type' keyword. Reference: https://json-schema.org/understanding-json-schema/reference/type.html."""
  type: String

  """JSON Schema 'maxLength' keyword for 'string' types. Reference: https://json-schema.org/understanding-json-schema/reference/string.html#length."""
  maxLength: Int

  """JSON Schema 'minLength' keyword for 'string' types. Reference: https://json-schema.org/understanding-json-schema/reference/string.html#length."""
  minLength: Int

  """JSON Schema 'pattern' keyword for 'string' types. Reference: https://json-schema.org/understanding-json-schema/reference/string.html#pattern."""
  pattern: String

  """JSON Schema 'format' keyword for 'string' types. Reference: https://json-schema.org/understanding-json-schema/reference/string.html#format."""
  format: String

  """JSON Schema 'maximum' keyword for 'number' types. Reference: https://json-schema.org/understanding-json-schema/reference/numeric.html#range."""
  maximum: Int

  """JSON Schema 'minimum' keyword for 'number' types. Reference: https://json-schema.org/understanding-json-schema/reference/numeric.html#range."""
  minimum: Int

  """JSON Schema 'exclusiveMaximum' keyword for 'number' types. Reference: https://json-schema.org/understanding-json-schema/reference/numeric.html#range."""
  exclusiveMaximum: Int

  """JSON Schema 'exclusiveMinimum' keyword for 'number' types. Reference: https://json-schema.org/understanding-json-schema/reference/numeric.html#range."""
  exclusiveMinimum: Int

  """JSON Schema 'multipleOf' keyword for 'number' types. Reference: https://json-schema.org/understanding-json-schema/reference/numeric.html#multiples."""
  multipleOf: Int

  """JSON Schema 'maxProperties' keyword for 'object' types. Reference: https://json-schema.org/understanding-json-schema/reference/object.html#size."""
  maxProperties: Int

  """JSON Schema 'minProperties' keyword for 'object' types. Reference: https://json-schema.org/understanding-json-schema/reference/object.html#size."""
  minProperties: Int

  """JSON Schema 'required' keyword for 'object' types. Reference: https://json-schema.org/understanding-json-schema/reference/object.html#required-properties."""
  required: [String!]

  """JSON Schema 'maxItems' keyword for 'array' types. Reference: https://json-schema.org/understanding-json-schema/reference/array.html#length."""
  maxItems: Int

  """JSON Schema 'minItems' keyword for 'array' types. Reference: https://json-schema.org/understanding-json-schema/reference/array.html#length."""
  minItems: Int

  """JSON Schema 'uniqueItems' keyword for 'array' types. Reference: https://json-schema.org/understanding-json-schema/reference/array.html#uniqueness."""
  uniqueItems: Boolean

  """The "schema" argument is used to pass custom JSON Schemas with keywords and definitions that are not yet supported by the directive definitions."""
  schema: String
) on ARGUMENT_DEFINITION | INPUT_FIELD_DEFINITION | INPUT_OBJECT
`

var (
	definitionOnce sync.Once
	definition     *ast.DirectiveDefinition
)

// Definition returns the parsed descriptor of TypeDefs.
func Definition() *ast.DirectiveDefinition {
	definitionOnce.Do(func() {
		doc, err := parser.ParseSchema(&ast.Source{Name: "constraint.graphql", Input: TypeDefs, BuiltIn: true})
		if err != nil {
			panic(err)
		}
		definition = doc.Directives.ForName(Name)
	})
	return definition
}
