// Package jtd implements JSON Type Definition (RFC 8927) schema checking and validation.
package jtd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/pkg/errors"
)

const (
	KeywordDefinitions          = "definitions"
	KeywordNullable             = "nullable"
	KeywordMetadata             = "metadata"
	KeywordRef                  = "ref"
	KeywordType                 = "type"
	KeywordEnum                 = "enum"
	KeywordElements             = "elements"
	KeywordProperties           = "properties"
	KeywordOptionalProperties   = "optionalProperties"
	KeywordAdditionalProperties = "additionalProperties"
	KeywordValues               = "values"
	KeywordDiscriminator        = "discriminator"
	KeywordMapping              = "mapping"
)

// Form is the shape of a schema.
type Form int

const (
	FormEmpty Form = iota
	FormRef
	FormType
	FormEnum
	FormElements
	FormProperties
	FormValues
	FormDiscriminator
)

var types = []string{
	"boolean", "string", "timestamp",
	"float32", "float64",
	"int8", "uint8", "int16", "uint16", "int32", "uint32",
}

var formKeywords = map[Form][]string{
	FormEmpty:         nil,
	FormRef:           {KeywordRef},
	FormType:          {KeywordType},
	FormEnum:          {KeywordEnum},
	FormElements:      {KeywordElements},
	FormProperties:    {KeywordProperties, KeywordOptionalProperties, KeywordAdditionalProperties},
	FormValues:        {KeywordValues},
	FormDiscriminator: {KeywordDiscriminator, KeywordMapping},
}

// Schema is a decoded JTD document.
type Schema map[string]any

// FormOf returns the form of s. It assumes s passed Check.
func FormOf(s Schema) Form {
	switch {
	case has(s, KeywordRef):
		return FormRef
	case has(s, KeywordType):
		return FormType
	case has(s, KeywordEnum):
		return FormEnum
	case has(s, KeywordElements):
		return FormElements
	case has(s, KeywordProperties), has(s, KeywordOptionalProperties):
		return FormProperties
	case has(s, KeywordValues):
		return FormValues
	case has(s, KeywordDiscriminator):
		return FormDiscriminator
	default:
		return FormEmpty
	}
}

// Check reports whether root is a correct root schema.
func Check(root Schema) error {
	definitions := map[string]Schema{}
	if raw, ok := root[KeywordDefinitions]; ok {
		defs, ok := asObject(raw)
		if !ok {
			return errors.New("definitions must be an object")
		}
		for name, v := range defs {
			def, ok := asSchema(v)
			if !ok {
				return errors.Errorf("definitions.%s must be an object", name)
			}
			definitions[name] = def
		}
	}

	c := checker{definitions: definitions}
	for _, name := range sortedKeys(definitions) {
		if err := c.check(definitions[name], false, "/definitions/"+name); err != nil {
			return err
		}
	}
	return c.check(root, true, "")
}

type checker struct {
	definitions map[string]Schema
}

func (c checker) check(s Schema, isRoot bool, path string) error {
	form := FormOf(s)
	allowed := append([]string{KeywordNullable, KeywordMetadata}, formKeywords[form]...)
	if isRoot {
		allowed = append(allowed, KeywordDefinitions)
	}
	for _, k := range sortedKeys(s) {
		if !slices.Contains(allowed, k) {
			return errors.Errorf("%s: keyword %q is not allowed here", pointerOrRoot(path), k)
		}
	}

	if v, ok := s[KeywordNullable]; ok {
		if _, ok := v.(bool); !ok {
			return errors.Errorf("%s: nullable must be a boolean", pointerOrRoot(path))
		}
	}
	if v, ok := s[KeywordMetadata]; ok {
		if _, ok := asObject(v); !ok {
			return errors.Errorf("%s: metadata must be an object", pointerOrRoot(path))
		}
	}

	switch form {
	case FormRef:
		name, ok := s[KeywordRef].(string)
		if !ok {
			return errors.Errorf("%s: ref must be a string", pointerOrRoot(path))
		}
		if _, ok := c.definitions[name]; !ok {
			return errors.Errorf("%s: ref %q has no definition", pointerOrRoot(path), name)
		}
	case FormType:
		name, ok := s[KeywordType].(string)
		if !ok || !slices.Contains(types, name) {
			return errors.Errorf("%s: unknown type %v", pointerOrRoot(path), s[KeywordType])
		}
	case FormEnum:
		values, ok := s[KeywordEnum].([]any)
		if !ok || len(values) == 0 {
			return errors.Errorf("%s: enum must be a non-empty array", pointerOrRoot(path))
		}
		seen := map[string]bool{}
		for _, v := range values {
			str, ok := v.(string)
			if !ok {
				return errors.Errorf("%s: enum values must be strings", pointerOrRoot(path))
			}
			if seen[str] {
				return errors.Errorf("%s: enum value %q is repeated", pointerOrRoot(path), str)
			}
			seen[str] = true
		}
	case FormElements:
		sub, ok := asSchema(s[KeywordElements])
		if !ok {
			return errors.Errorf("%s: elements must be a schema", pointerOrRoot(path))
		}
		return c.check(sub, false, path+"/elements")
	case FormProperties:
		return c.checkProperties(s, path)
	case FormValues:
		sub, ok := asSchema(s[KeywordValues])
		if !ok {
			return errors.Errorf("%s: values must be a schema", pointerOrRoot(path))
		}
		return c.check(sub, false, path+"/values")
	case FormDiscriminator:
		return c.checkDiscriminator(s, path)
	}
	return nil
}

func (c checker) checkProperties(s Schema, path string) error {
	if v, ok := s[KeywordAdditionalProperties]; ok {
		if _, ok := v.(bool); !ok {
			return errors.Errorf("%s: additionalProperties must be a boolean", pointerOrRoot(path))
		}
	}

	seen := map[string]bool{}
	for _, keyword := range []string{KeywordProperties, KeywordOptionalProperties} {
		raw, ok := s[keyword]
		if !ok {
			continue
		}
		props, ok := asObject(raw)
		if !ok {
			return errors.Errorf("%s: %s must be an object", pointerOrRoot(path), keyword)
		}
		for _, name := range sortedKeys(props) {
			if seen[name] {
				return errors.Errorf("%s: property %q is both required and optional", pointerOrRoot(path), name)
			}
			seen[name] = true
			sub, ok := asSchema(props[name])
			if !ok {
				return errors.Errorf("%s/%s/%s: must be a schema", path, keyword, escape(name))
			}
			if err := c.check(sub, false, path+"/"+keyword+"/"+escape(name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c checker) checkDiscriminator(s Schema, path string) error {
	tag, ok := s[KeywordDiscriminator].(string)
	if !ok {
		return errors.Errorf("%s: discriminator must be a string", pointerOrRoot(path))
	}
	mapping, ok := asObject(s[KeywordMapping])
	if !ok {
		return errors.Errorf("%s: mapping must be an object", pointerOrRoot(path))
	}
	for _, name := range sortedKeys(mapping) {
		sub, ok := asSchema(mapping[name])
		subPath := path + "/mapping/" + escape(name)
		if !ok || FormOf(sub) != FormProperties {
			return errors.Errorf("%s: mapping values must be of the properties form", subPath)
		}
		if nullable, _ := sub[KeywordNullable].(bool); nullable {
			return errors.Errorf("%s: mapping values must not be nullable", subPath)
		}
		for _, keyword := range []string{KeywordProperties, KeywordOptionalProperties} {
			if props, ok := asObject(sub[keyword]); ok {
				if _, clash := props[tag]; clash {
					return errors.Errorf("%s: %s must not redefine the discriminator %q", subPath, keyword, tag)
				}
			}
		}
		if err := c.check(sub, false, subPath); err != nil {
			return err
		}
	}
	return nil
}

func has(s Schema, key string) bool {
	_, ok := s[key]
	return ok
}

func asObject(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case Schema:
		return val, true
	case map[string]any:
		return val, true
	default:
		return nil, false
	}
}

func asSchema(v any) (Schema, bool) {
	m, ok := asObject(v)
	return m, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Sorted(maps.Keys(m))
	return keys
}

func pointerOrRoot(path string) string {
	if path == "" {
		return "schema"
	}
	return fmt.Sprintf("schema %s", path)
}
