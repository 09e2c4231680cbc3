package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/platform-mesh/graphql-validation/validation/fragment"
	"github.com/platform-mesh/graphql-validation/validation/synth"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// JSONSchema compiles fragments with a Draft 2020-12 compiler. A new instance is used for every
// generation.
type JSONSchema struct {
	opts Options
	docs []synth.Document
}

func NewJSONSchema(opts Options) *JSONSchema {
	return &JSONSchema{opts: opts}
}

func (e *JSONSchema) Add(doc synth.Document) {
	e.docs = append(e.docs, doc)
}

// Compile registers every fragment, then compiles each one. The first failure aborts.
func (e *JSONSchema) Compile() (*Set, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	c.LoadURL = func(s string) (io.ReadCloser, error) {
		return nil, errors.Errorf("unknown validation schema %s", s)
	}

	names := slices.Sorted(maps.Keys(e.opts.Formats))
	for _, name := range names {
		re, err := regexp.Compile(e.opts.Formats[name])
		if err != nil {
			return nil, verrors.InvalidOpts("format %q is not a valid regular expression: %s", name, err)
		}
		c.Formats[name] = func(v any) bool {
			s, ok := v.(string)
			return !ok || re.MatchString(s)
		}
	}

	idx := index{}
	urls := make([]string, len(e.docs))
	for i, doc := range e.docs {
		url, _ := doc.Fragment[fragment.KeyID].(string)
		if url == "" {
			return nil, errors.Errorf("validation schema %s has no %s", doc.Address.Dotted(), fragment.KeyID)
		}
		raw, err := json.Marshal(map[string]any(doc.Fragment))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode validation schema %s", doc.Address.Dotted())
		}
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, errors.Wrapf(err, "failed to add validation schema %s", doc.Address.Dotted())
		}
		idx.add(doc.Fragment)
		urls[i] = url
	}

	set := newSet()
	for i, doc := range e.docs {
		schema, err := c.Compile(urls[i])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile validation schema %s", doc.Address.Dotted())
		}
		set.validators[doc.Address] = &jsonSchemaValidator{
			schema:   schema,
			fragment: doc.Fragment,
			index:    idx,
			opts:     e.opts,
		}
	}
	return set, nil
}

type jsonSchemaValidator struct {
	schema   *jsonschema.Schema
	fragment fragment.Fragment
	index    index
	opts     Options
}

func (v *jsonSchemaValidator) Validate(_ context.Context, args map[string]any) []any {
	if args == nil {
		args = map[string]any{}
	}
	data, err := normalize(args)
	if err != nil {
		return failure(err)
	}
	if v.opts.CoerceTypes {
		data = coerce(data, v.fragment, v.index, 0)
	}

	err = v.schema.Validate(data)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return failure(err)
	}

	var details []any
	for _, leaf := range leaves(ve) {
		details = append(details, v.detail(leaf, data))
		if !v.opts.AllErrors {
			break
		}
	}
	return details
}

func (v *jsonSchemaValidator) detail(ve *jsonschema.ValidationError, data any) map[string]any {
	d := map[string]any{
		"instancePath": ve.InstanceLocation,
		"schemaPath":   "#" + ve.KeywordLocation,
		"keyword":      keywordOf(ve.KeywordLocation),
		"message":      ve.Message,
	}
	if !v.opts.Verbose {
		return d
	}

	schema, parent := v.index.resolve(ve.AbsoluteKeywordLocation)
	d["schema"] = schema
	d["parentSchema"] = parent
	d["data"] = lookupPointer(data, ve.InstanceLocation)
	return d
}

// leaves flattens ve to the errors that carry no causes.
func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

func keywordOf(location string) string {
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return unescape(location[i+1:])
	}
	return location
}

// index maps every $id, including nested ones, to its fragment.
type index map[string]fragment.Fragment

func (idx index) add(f fragment.Fragment) {
	if id, ok := f[fragment.KeyID].(string); ok {
		idx[id] = f
	}
	for _, v := range f {
		switch val := v.(type) {
		case map[string]any:
			idx.add(val)
		case fragment.Fragment:
			idx.add(val)
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					idx.add(m)
				}
			}
		}
	}
}

// resolve returns the keyword value at an absolute keyword location and the object holding it.
func (idx index) resolve(location string) (any, any) {
	url, ptr, _ := strings.Cut(location, "#")
	root, ok := idx[url]
	if !ok {
		return nil, nil
	}
	if ptr == "" {
		return map[string]any(root), nil
	}

	parentPtr := ptr[:strings.LastIndex(ptr, "/")]
	return lookupPointer(map[string]any(root), ptr), lookupPointer(map[string]any(root), parentPtr)
}

func (idx index) ref(ref string) (fragment.Fragment, bool) {
	f, ok := idx[ref]
	return f, ok
}

// lookupPointer resolves a JSON pointer inside v.
func lookupPointer(v any, ptr string) any {
	if ptr == "" {
		return v
	}
	for _, segment := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		segment = unescape(segment)
		switch val := v.(type) {
		case map[string]any:
			v = val[segment]
		case fragment.Fragment:
			v = val[segment]
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(val) {
				return nil
			}
			v = val[i]
		default:
			return nil
		}
	}
	return v
}

func unescape(segment string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(segment)
}
