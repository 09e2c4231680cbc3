package jtd

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrMaxDepth is returned when ref resolution nests deeper than Options.MaxDepth.
var ErrMaxDepth = errors.New("max depth exceeded")

// Options bound validation work. Zero values mean unlimited.
type Options struct {
	MaxDepth  int
	MaxErrors int
}

// Error is one validation failure, addressed by JSON-pointer segments.
type Error struct {
	InstancePath []string
	SchemaPath   []string
	Keyword      string
	Message      string
}

// InstancePointer renders InstancePath as a JSON pointer.
func (e Error) InstancePointer() string {
	return pointer(e.InstancePath)
}

// SchemaPointer renders SchemaPath as a JSON pointer.
func (e Error) SchemaPointer() string {
	return pointer(e.SchemaPath)
}

// Validate checks instance against root. root must have passed Check.
func Validate(root Schema, instance any, opts Options) ([]Error, error) {
	definitions := map[string]Schema{}
	if defs, ok := asObject(root[KeywordDefinitions]); ok {
		for name, v := range defs {
			if def, ok := asSchema(v); ok {
				definitions[name] = def
			}
		}
	}

	v := &validator{definitions: definitions, opts: opts}
	err := v.validate(root, instance, "", nil, nil)
	if errors.Is(err, errMaxErrors) {
		err = nil
	}
	return v.errors, err
}

var errMaxErrors = errors.New("max errors reached")

type validator struct {
	definitions map[string]Schema
	opts        Options
	depth       int
	errors      []Error
}

func (v *validator) fail(instancePath, schemaPath []string, keyword, message string) error {
	v.errors = append(v.errors, Error{
		InstancePath: slices.Clone(instancePath),
		SchemaPath:   slices.Clone(schemaPath),
		Keyword:      keyword,
		Message:      message,
	})
	if v.opts.MaxErrors > 0 && len(v.errors) >= v.opts.MaxErrors {
		return errMaxErrors
	}
	return nil
}

func (v *validator) validate(s Schema, instance any, tag string, instancePath, schemaPath []string) error {
	if nullable, _ := s[KeywordNullable].(bool); nullable && instance == nil {
		return nil
	}

	switch FormOf(s) {
	case FormRef:
		name, _ := s[KeywordRef].(string)
		if v.opts.MaxDepth > 0 && v.depth >= v.opts.MaxDepth {
			return ErrMaxDepth
		}
		v.depth++
		err := v.validate(v.definitions[name], instance, "", instancePath, []string{KeywordDefinitions, name})
		v.depth--
		return err

	case FormType:
		name, _ := s[KeywordType].(string)
		if !matchesType(name, instance) {
			return v.fail(instancePath, append(schemaPath, KeywordType), KeywordType, "must be "+name)
		}

	case FormEnum:
		values, _ := s[KeywordEnum].([]any)
		str, ok := instance.(string)
		if !ok || !slices.Contains(values, any(str)) {
			return v.fail(instancePath, append(schemaPath, KeywordEnum), KeywordEnum, "must be equal to one of the allowed values")
		}

	case FormElements:
		items, ok := instance.([]any)
		if !ok {
			return v.fail(instancePath, append(schemaPath, KeywordElements), KeywordElements, "must be array")
		}
		sub, _ := asSchema(s[KeywordElements])
		for i, item := range items {
			if err := v.validate(sub, item, "", append(instancePath, strconv.Itoa(i)), append(schemaPath, KeywordElements)); err != nil {
				return err
			}
		}

	case FormProperties:
		return v.validateProperties(s, instance, tag, instancePath, schemaPath)

	case FormValues:
		obj, ok := instance.(map[string]any)
		if !ok {
			return v.fail(instancePath, append(schemaPath, KeywordValues), KeywordValues, "must be object")
		}
		sub, _ := asSchema(s[KeywordValues])
		for _, key := range sortedKeys(obj) {
			if err := v.validate(sub, obj[key], "", append(instancePath, key), append(schemaPath, KeywordValues)); err != nil {
				return err
			}
		}

	case FormDiscriminator:
		return v.validateDiscriminator(s, instance, instancePath, schemaPath)
	}
	return nil
}

func (v *validator) validateProperties(s Schema, instance any, tag string, instancePath, schemaPath []string) error {
	obj, ok := instance.(map[string]any)
	if !ok {
		keyword := KeywordProperties
		if !has(s, KeywordProperties) {
			keyword = KeywordOptionalProperties
		}
		return v.fail(instancePath, append(schemaPath, keyword), keyword, "must be object")
	}

	required, _ := asObject(s[KeywordProperties])
	optional, _ := asObject(s[KeywordOptionalProperties])

	for _, name := range sortedKeys(required) {
		sub, _ := asSchema(required[name])
		value, present := obj[name]
		if !present {
			if err := v.fail(instancePath, append(schemaPath, KeywordProperties, name), KeywordProperties, "must have property '"+name+"'"); err != nil {
				return err
			}
			continue
		}
		if err := v.validate(sub, value, "", append(instancePath, name), append(schemaPath, KeywordProperties, name)); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(optional) {
		value, present := obj[name]
		if !present {
			continue
		}
		sub, _ := asSchema(optional[name])
		if err := v.validate(sub, value, "", append(instancePath, name), append(schemaPath, KeywordOptionalProperties, name)); err != nil {
			return err
		}
	}

	if additional, _ := s[KeywordAdditionalProperties].(bool); additional {
		return nil
	}
	for _, name := range sortedKeys(obj) {
		_, isRequired := required[name]
		_, isOptional := optional[name]
		if isRequired || isOptional || name == tag {
			continue
		}
		if err := v.fail(append(instancePath, name), schemaPath, KeywordAdditionalProperties, "must NOT have additional properties"); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) validateDiscriminator(s Schema, instance any, instancePath, schemaPath []string) error {
	obj, ok := instance.(map[string]any)
	if !ok {
		return v.fail(instancePath, append(schemaPath, KeywordDiscriminator), KeywordDiscriminator, "must be object")
	}

	tag, _ := s[KeywordDiscriminator].(string)
	raw, present := obj[tag]
	if !present {
		return v.fail(instancePath, append(schemaPath, KeywordDiscriminator), KeywordDiscriminator, "must have property '"+tag+"'")
	}
	value, ok := raw.(string)
	if !ok {
		return v.fail(append(instancePath, tag), append(schemaPath, KeywordDiscriminator), KeywordDiscriminator, "tag '"+tag+"' must be string")
	}

	mapping, _ := asObject(s[KeywordMapping])
	sub, ok := asSchema(mapping[value])
	if !ok {
		return v.fail(append(instancePath, tag), append(schemaPath, KeywordMapping), KeywordMapping, "value of tag '"+tag+"' must be in mapping")
	}
	return v.validate(sub, instance, tag, instancePath, append(schemaPath, KeywordMapping, value))
}

func matchesType(name string, instance any) bool {
	switch name {
	case "boolean":
		_, ok := instance.(bool)
		return ok
	case "string":
		_, ok := instance.(string)
		return ok
	case "timestamp":
		s, ok := instance.(string)
		if !ok {
			return false
		}
		// RFC 3339 allows leap seconds, time.Parse does not.
		if len(s) > 19 && s[17:19] == "60" {
			s = s[:17] + "59" + s[19:]
		}
		_, err := time.Parse(time.RFC3339Nano, s)
		return err == nil
	case "float32", "float64":
		_, ok := number(instance)
		return ok
	case "int8":
		return inRange(instance, math.MinInt8, math.MaxInt8)
	case "uint8":
		return inRange(instance, 0, math.MaxUint8)
	case "int16":
		return inRange(instance, math.MinInt16, math.MaxInt16)
	case "uint16":
		return inRange(instance, 0, math.MaxUint16)
	case "int32":
		return inRange(instance, math.MinInt32, math.MaxInt32)
	case "uint32":
		return inRange(instance, 0, math.MaxUint32)
	}
	return false
}

func number(instance any) (float64, bool) {
	switch n := instance.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func inRange(instance any, lower, upper float64) bool {
	n, ok := number(instance)
	if !ok || n != math.Trunc(n) {
		return false
	}
	return n >= lower && n <= upper
}

func pointer(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(escape(s))
	}
	return b.String()
}

func escape(segment string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(segment)
}
