package lifecycle

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/platform-mesh/golang-commons/logger"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/directive"
	"github.com/platform-mesh/graphql-validation/validation/engine"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/metrics"
	"github.com/platform-mesh/graphql-validation/validation/pipeline"
	"github.com/platform-mesh/graphql-validation/validation/policy"
	"github.com/platform-mesh/graphql-validation/validation/synth"
)

// State of a Coordinator.
type State int32

const (
	Uninitialized State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Generation is everything derived from one schema.
type Generation struct {
	Number      uint64
	Schema      *graphql.Schema
	SDL         *ast.Schema
	Declarative *engine.Set
	Directive   *engine.Set
	Functions   *function.Table
	Wrapped     []address.Address
}

// ErrSchemaInUse is returned when a rebuild targets the executable schema of the current generation.
var ErrSchemaInUse = errors.New("executable schema is served by the current generation, build a fresh one")

// Coordinator builds generations and publishes them atomically.
type Coordinator struct {
	opts    Options
	log     *logger.Logger
	mu      sync.Mutex
	current atomic.Pointer[Generation]
	state   atomic.Int32
	number  atomic.Uint64
}

func New(opts Options, log *logger.Logger) (*Coordinator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Policy == nil {
		opts.Policy = policy.New()
	}
	return &Coordinator{opts: opts, log: log}, nil
}

// Current returns the active generation, or nil before the first successful Register.
func (c *Coordinator) Current() *Generation {
	return c.current.Load()
}

func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// OnReplaceSchema rebuilds every validator for a replaced schema. exec must be a freshly built
// schema; passing the current generation's schema returns ErrSchemaInUse.
func (c *Coordinator) OnReplaceSchema(ctx context.Context, sdl *ast.Schema, exec *graphql.Schema) (*Generation, error) {
	return c.Register(ctx, sdl, exec)
}

// Register builds a generation for sdl and installs its wrapped resolvers on exec. exec must not
// be serving requests of an older generation, and the current generation's schema is rejected
// with ErrSchemaInUse. On failure the previous generation stays current.
func (c *Coordinator) Register(ctx context.Context, sdl *ast.Schema, exec *graphql.Schema) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.register(ctx, c.opts, sdl, exec)
}

// Reload is Register with a replacement policy. The policy is only kept when the build succeeds.
func (c *Coordinator) Reload(ctx context.Context, p *policy.Policy, sdl *ast.Schema, exec *graphql.Schema) (*Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := c.opts
	opts.Policy = p
	if opts.Policy == nil {
		opts.Policy = policy.New()
	}
	gen, err := c.register(ctx, opts, sdl, exec)
	if err == nil {
		c.opts = opts
	}
	return gen, err
}

func (c *Coordinator) register(ctx context.Context, opts Options, sdl *ast.Schema, exec *graphql.Schema) (*Generation, error) {

	ctx, span := otel.Tracer("").Start(ctx, "validation.rebuild")
	defer span.End()

	previous := c.current.Load()
	c.state.Store(int32(Building))

	gen, err := c.build(ctx, opts, sdl, exec, previous)
	if err != nil {
		if previous != nil {
			c.state.Store(int32(Ready))
		} else {
			c.state.Store(int32(Uninitialized))
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.Rebuilds.WithLabelValues("failure").Inc()
		c.log.Error().Err(err).Msg("failed to build validation generation, keeping the previous one")
		return nil, err
	}

	c.current.Store(gen)
	c.state.Store(int32(Ready))

	span.SetAttributes(attribute.Int64("generation", int64(gen.Number)), attribute.Int("wrapped", len(gen.Wrapped)))
	metrics.Rebuilds.WithLabelValues("success").Inc()
	metrics.Generation.Set(float64(gen.Number))
	metrics.WrappedFields.Set(float64(len(gen.Wrapped)))
	c.log.Info().
		Uint64("generation", gen.Number).
		Int("wrapped", len(gen.Wrapped)).
		Int("declarative", gen.Declarative.Len()).
		Int("directive", gen.Directive.Len()).
		Msg("validation generation ready")
	return gen, nil
}

func (c *Coordinator) build(ctx context.Context, opts Options, sdl *ast.Schema, exec *graphql.Schema, previous *Generation) (*Generation, error) {
	if sdl == nil || exec == nil {
		return nil, errors.New("schema is required")
	}
	if previous != nil && previous.Schema == exec {
		return nil, ErrSchemaInUse
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	for _, a := range opts.Policy.Unresolved(sdl) {
		c.log.Warn().Str("address", a.Dotted()).Msg("validation policy names an element missing from the schema")
	}

	declarative, declarativeFields, err := compileDeclarative(opts, sdl)
	if err != nil {
		return nil, err
	}

	functions := function.Build(sdl, opts.Policy.FunctionBindings(), c.log)

	directiveSet, directiveFields, err := compileDirective(opts, sdl)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "validation generation cancelled")
	}

	gen := &Generation{
		Schema:      exec,
		SDL:         sdl,
		Declarative: declarative,
		Directive:   directiveSet,
		Functions:   functions,
	}

	type assignment struct {
		field   *graphql.FieldDefinition
		resolve graphql.FieldResolveFn
	}
	var assignments []assignment

	for _, addr := range union(declarativeFields, functions.Fields(), directiveFields) {
		fd := objectField(exec, addr)
		if fd == nil {
			c.log.Warn().Str("field", addr.Dotted()).Msg("field is missing from the executable schema, skipping validation")
			continue
		}

		base := fd.Resolve

		var layers []pipeline.Layer
		if v, ok := declarative.Lookup(addr); ok {
			layers = append(layers, pipeline.NewSchemaLayer(pipeline.Declarative, v))
		}
		if fns := functions.ForField(addr.Type, addr.Field); len(fns) > 0 {
			layers = append(layers, pipeline.NewFunctionLayer(addr.Type, addr.Field, fns))
		}
		if v, ok := directiveSet.Lookup(addr); ok {
			layers = append(layers, pipeline.NewSchemaLayer(pipeline.Directive, v))
		}

		assignments = append(assignments, assignment{field: fd, resolve: pipeline.Wrap(addr.Type, addr.Field, base, layers...)})
		gen.Wrapped = append(gen.Wrapped, addr)
	}

	for _, a := range assignments {
		a.field.Resolve = a.resolve
	}
	gen.Number = c.number.Add(1)
	return gen, nil
}

func compileDeclarative(opts Options, sdl *ast.Schema) (*engine.Set, []address.Address, error) {
	var (
		result *synth.Result
		err    error
		eng    engine.Engine
	)
	switch opts.Mode {
	case ModeJTD:
		result, err = (&synth.JTD{Schema: sdl, Policy: opts.Policy}).Synthesize()
		if err == nil {
			eng = engine.NewJTD(opts.Engine, result.Definitions)
		}
	default:
		result, err = (&synth.JSONSchema{Schema: sdl, Policy: opts.Policy, Inference: opts.Inference, BaseURL: opts.BaseURL}).Synthesize()
		if err == nil {
			eng = engine.NewJSONSchema(opts.Engine)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	set, err := engine.Load(eng, result).Compile()
	if err != nil {
		return nil, nil, err
	}
	return set, result.Fields, nil
}

// compileDirective always uses JSON-Schema since directive arguments cannot express JTD.
func compileDirective(opts Options, sdl *ast.Schema) (*engine.Set, []address.Address, error) {
	if !opts.DirectiveValidation {
		return nil, nil, nil
	}
	p, declared, err := directive.Extract(sdl)
	if err != nil || !declared {
		return nil, nil, err
	}

	result, err := (&synth.JSONSchema{Schema: sdl, Policy: p, Inference: opts.Inference, BaseURL: opts.BaseURL}).Synthesize()
	if err != nil {
		return nil, nil, err
	}
	set, err := engine.Load(engine.NewJSONSchema(opts.Engine), result).Compile()
	if err != nil {
		return nil, nil, errors.Wrap(err, "constraint directive")
	}
	return set, result.Fields, nil
}

func objectField(exec *graphql.Schema, addr address.Address) *graphql.FieldDefinition {
	obj, ok := exec.Type(addr.Type).(*graphql.Object)
	if !ok {
		return nil
	}
	return obj.Fields()[addr.Field]
}

func union(lists ...[]address.Address) []address.Address {
	seen := map[address.Address]bool{}
	var out []address.Address
	for _, list := range lists {
		for _, a := range list {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	slices.SortFunc(out, func(a, b address.Address) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}
