package engine

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/synth"
)

// Options tune the underlying validation engines.
type Options struct {
	// AllErrors reports every failure instead of stopping at the first one.
	AllErrors bool
	// Verbose adds the failing schema, its parent and the offending data to every detail.
	Verbose bool
	// CoerceTypes converts scalar arguments to the declared JSON-Schema type before validating.
	CoerceTypes bool
	// Formats registers custom string formats as regular expressions.
	Formats map[string]string
	// MaxDepth bounds JTD ref nesting.
	MaxDepth int
	// MaxErrors bounds the JTD failures collected per validation.
	MaxErrors int
}

// DefaultOptions mirrors the engine defaults used for every generation.
func DefaultOptions() Options {
	return Options{
		AllErrors:   true,
		Verbose:     true,
		CoerceTypes: true,
	}
}

// Validator validates the argument bag of one field.
type Validator interface {
	// Validate returns the failure details, or nil when args are valid.
	Validate(ctx context.Context, args map[string]any) []any
}

// Engine loads synthesized fragments and compiles them eagerly.
type Engine interface {
	Add(doc synth.Document)
	Compile() (*Set, error)
}

// Set is the compiled output of one engine for one generation.
type Set struct {
	validators map[address.Address]Validator
}

func newSet() *Set {
	return &Set{validators: map[address.Address]Validator{}}
}

// Lookup returns the validator registered at a.
func (s *Set) Lookup(a address.Address) (Validator, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.validators[a]
	return v, ok
}

// Len returns the number of compiled fragments.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.validators)
}

// Addresses lists every compiled address in key order.
func (s *Set) Addresses() []address.Address {
	if s == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(s.validators), func(a, b address.Address) int {
		return strings.Compare(a.Key(), b.Key())
	})
}

// Load adds every document of r to e.
func Load(e Engine, r *synth.Result) Engine {
	for _, doc := range r.Documents {
		e.Add(doc)
	}
	return e
}

// normalize converts resolver arguments into plain JSON values.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode arguments")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "failed to decode arguments")
	}
	return out, nil
}

// failure turns an internal problem into a single detail so the field still fails closed.
func failure(err error) []any {
	return []any{map[string]any{"message": err.Error()}}
}
