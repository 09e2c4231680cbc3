package verrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidOpts        = "MER_VALIDATION_ERR_INVALID_OPTS"
	CodeFieldTypeUndefined = "MER_VALIDATION_ERR_FIELD_TYPE_UNDEFINED"
	CodeFailedValidation   = "MER_VALIDATION_ERR_FAILED_VALIDATION"

	// ValidationErrorName is reported in the extensions of every failed field.
	ValidationErrorName = "ValidationError"
)

var (
	// ErrInvalidOpts indicates a malformed validation policy or option set.
	ErrInvalidOpts = errors.New("invalid options")

	// ErrFieldTypeUndefined indicates a constraint was declared for an input field whose
	// type could not be inferred.
	ErrFieldTypeUndefined = errors.New("type of field must be defined")
)

// ConfigError is a fatal registration error.
type ConfigError struct {
	code    string
	message string
	cause   error
}

func (e *ConfigError) Error() string {
	return e.message
}

func (e *ConfigError) Unwrap() error {
	return e.cause
}

func (e *ConfigError) Code() string {
	return e.code
}

// InvalidOpts reports a policy or option problem.
func InvalidOpts(format string, args ...any) error {
	return &ConfigError{
		code:    CodeInvalidOpts,
		message: "Invalid options: " + fmt.Sprintf(format, args...),
		cause:   ErrInvalidOpts,
	}
}

// FieldTypeUndefined reports the input field at id whose type could not be inferred.
func FieldTypeUndefined(id string) error {
	return &ConfigError{
		code:    CodeFieldTypeUndefined,
		message: "Type of field must be defined: " + id,
		cause:   ErrFieldTypeUndefined,
	}
}

// Code returns the taxonomy code carried by err, or "" if there is none.
func Code(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// ValidationError is returned from a wrapped resolver when a validation layer fails.
type ValidationError struct {
	message string
	details []any
}

func NewValidationError(typeName, fieldName string, details []any) *ValidationError {
	return &ValidationError{
		message: fmt.Sprintf("Failed Validation on arguments for field '%s.%s'", typeName, fieldName),
		details: details,
	}
}

func (e *ValidationError) Error() string {
	return e.message
}

func (e *ValidationError) String() string {
	return fmt.Sprintf("%s [%s]: %s", ValidationErrorName, CodeFailedValidation, e.message)
}

func (e *ValidationError) Code() string {
	return CodeFailedValidation
}

func (e *ValidationError) Details() []any {
	return e.details
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// Extensions satisfies gqlerrors.ExtendedError.
func (e *ValidationError) Extensions() map[string]any {
	return map[string]any{
		"name":    ValidationErrorName,
		"code":    CodeFailedValidation,
		"details": e.details,
	}
}
