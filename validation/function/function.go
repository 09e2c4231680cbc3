package function

import (
	"context"

	"github.com/graphql-go/graphql"
)

// Metadata tells a validator which argument it is checking.
type Metadata struct {
	Type     string `json:"type"`
	Field    string `json:"field"`
	Argument string `json:"argument"`
}

// Func validates one argument value. A non-nil error fails the argument.
type Func func(ctx context.Context, meta Metadata, value any, p graphql.ResolveParams) error

// Detailer lets an error pick the payload reported in the validation error details.
type Detailer interface {
	Detail() any
}

// Failure is an error with an explicit detail payload.
type Failure struct {
	Message string
	Data    any
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Detail() any {
	if f.Data == nil {
		return map[string]any{"message": f.Message}
	}
	return f.Data
}

// Fail builds a Failure carrying data as its detail.
func Fail(message string, data any) error {
	return &Failure{Message: message, Data: data}
}

// DetailOf returns the payload err contributes to the validation error details.
func DetailOf(err error) any {
	if d, ok := err.(Detailer); ok {
		return d.Detail()
	}
	return map[string]any{"message": err.Error()}
}

// Binding attaches a validator to an argument.
type Binding struct {
	Type     string
	Field    string
	Argument string
	Fn       Func
}
