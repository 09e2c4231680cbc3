package address

import (
	"fmt"
	"strings"
)

// DefaultBaseURL prefixes every address when it is used as a JSON-Schema $id.
const DefaultBaseURL = "https://platform-mesh.io/validation"

const separator = "/"

// Address identifies a validated unit: an input type, a field or a field argument.
type Address struct {
	Type     string
	Field    string
	Argument string
}

func ForType(typeName string) Address {
	return Address{Type: typeName}
}

func ForField(typeName, fieldName string) Address {
	return Address{Type: typeName, Field: fieldName}
}

func ForArgument(typeName, fieldName, argumentName string) Address {
	return Address{Type: typeName, Field: fieldName, Argument: argumentName}
}

// Key returns the canonical form type[/field[/argument]].
func (a Address) Key() string {
	parts := []string{a.Type}
	if a.Field != "" {
		parts = append(parts, a.Field)
		if a.Argument != "" {
			parts = append(parts, a.Argument)
		}
	}
	return strings.Join(parts, separator)
}

// URL returns the address below base, used as $id and $ref target.
func (a Address) URL(base string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimSuffix(base, separator) + separator + a.Key()
}

// Dotted returns type.field.argument, the key of the function validator table.
func (a Address) Dotted() string {
	return strings.ReplaceAll(a.Key(), separator, ".")
}

func (a Address) String() string {
	return a.Key()
}

// Parent drops the most specific part of the address.
func (a Address) Parent() Address {
	switch {
	case a.Argument != "":
		return ForField(a.Type, a.Field)
	case a.Field != "":
		return ForType(a.Type)
	default:
		return a
	}
}

// Parse is the inverse of Key.
func Parse(key string) (Address, error) {
	if key == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	parts := strings.Split(key, separator)
	if len(parts) > 3 {
		return Address{}, fmt.Errorf("address %q has more than three parts", key)
	}
	for _, p := range parts {
		if p == "" {
			return Address{}, fmt.Errorf("address %q contains an empty part", key)
		}
	}

	a := Address{Type: parts[0]}
	if len(parts) > 1 {
		a.Field = parts[1]
	}
	if len(parts) > 2 {
		a.Argument = parts[2]
	}
	return a, nil
}
