package lifecycle

import (
	"github.com/hashicorp/go-multierror"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/engine"
	"github.com/platform-mesh/graphql-validation/validation/policy"
	"github.com/platform-mesh/graphql-validation/validation/synth"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

// Mode selects the declarative schema language.
type Mode string

const (
	ModeJSONSchema Mode = "JSONSchema"
	ModeJTD        Mode = "JTD"
)

type Options struct {
	Mode                Mode
	Policy              *policy.Policy
	DirectiveValidation bool
	Inference           synth.InferenceFunc
	Engine              engine.Options
	BaseURL             string
}

func DefaultOptions() Options {
	return Options{
		Mode:                ModeJSONSchema,
		DirectiveValidation: true,
		Engine:              engine.DefaultOptions(),
		BaseURL:             address.DefaultBaseURL,
	}
}

// Validate reports every problem with o at once.
func (o Options) Validate() error {
	var result *multierror.Error

	switch o.Mode {
	case ModeJSONSchema, ModeJTD:
	default:
		result = multierror.Append(result, verrors.InvalidOpts("opts.mode must be %q or %q, got %q.", ModeJSONSchema, ModeJTD, o.Mode))
	}
	if o.Mode == ModeJTD && o.Inference != nil {
		result = multierror.Append(result, verrors.InvalidOpts("opts.inference is only supported in %s mode.", ModeJSONSchema))
	}
	if o.Engine.MaxDepth < 0 {
		result = multierror.Append(result, verrors.InvalidOpts("opts.engine.maxDepth must not be negative."))
	}
	if o.Engine.MaxErrors < 0 {
		result = multierror.Append(result, verrors.InvalidOpts("opts.engine.maxErrors must not be negative."))
	}

	return result.ErrorOrNil()
}
