package config

import (
	"encoding/json"
	"time"

	"github.com/platform-mesh/graphql-validation/validation/engine"
	"github.com/platform-mesh/graphql-validation/validation/lifecycle"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

type Config struct {
	SchemaPath string `mapstructure:"schema-path" default:"./schema.graphql" description:"GraphQL SDL file or directory of .graphql files"`
	PolicyPath string `mapstructure:"policy-path" default:"" description:"YAML or JSON validation policy file"`
	DataPath   string `mapstructure:"data-path" default:"" description:"YAML fixture file backing the resolvers"`

	Validation struct {
		Mode                string `mapstructure:"validation-mode" default:"JSONSchema" description:"declarative schema language: JSONSchema or JTD"`
		DirectiveValidation bool   `mapstructure:"validation-directive" default:"true" description:"honor @constraint directives in the SDL"`
		BaseURL             string `mapstructure:"validation-base-url" default:"https://platform-mesh.io/validation" description:"base URL of synthesized schema ids"`

		Engine struct {
			AllErrors   bool   `mapstructure:"validation-engine-all-errors" default:"true"`
			Verbose     bool   `mapstructure:"validation-engine-verbose" default:"true"`
			CoerceTypes bool   `mapstructure:"validation-engine-coerce-types" default:"true"`
			Formats     string `mapstructure:"validation-engine-formats" default:"" description:"custom string formats as a JSON object of name to regular expression"`
			MaxDepth    int    `mapstructure:"validation-engine-max-depth" default:"0"`
			MaxErrors   int    `mapstructure:"validation-engine-max-errors" default:"0"`
		} `mapstructure:",squash"`
	} `mapstructure:",squash"`

	Gateway struct {
		Port            string        `mapstructure:"gateway-port" default:"8080"`
		WatchDebounce   time.Duration `mapstructure:"gateway-watch-debounce" default:"200ms"`
		DisableWatching bool          `mapstructure:"gateway-disable-watching" default:"false"`

		HandlerCfg struct {
			Pretty     bool `mapstructure:"gateway-handler-pretty" default:"true"`
			Playground bool `mapstructure:"gateway-handler-playground" default:"false"`
			GraphiQL   bool `mapstructure:"gateway-handler-graphiql" default:"true"`
		} `mapstructure:",squash"`
	} `mapstructure:",squash"`
}

// LifecycleOptions translates the flag values into coordinator options. The policy is loaded separately.
func (c Config) LifecycleOptions() (lifecycle.Options, error) {
	formats, err := c.formats()
	if err != nil {
		return lifecycle.Options{}, err
	}

	opts := lifecycle.DefaultOptions()
	opts.Mode = lifecycle.Mode(c.Validation.Mode)
	opts.DirectiveValidation = c.Validation.DirectiveValidation
	if c.Validation.BaseURL != "" {
		opts.BaseURL = c.Validation.BaseURL
	}
	opts.Engine = engine.Options{
		AllErrors:   c.Validation.Engine.AllErrors,
		Verbose:     c.Validation.Engine.Verbose,
		CoerceTypes: c.Validation.Engine.CoerceTypes,
		Formats:     formats,
		MaxDepth:    c.Validation.Engine.MaxDepth,
		MaxErrors:   c.Validation.Engine.MaxErrors,
	}
	return opts, nil
}

func (c Config) formats() (map[string]string, error) {
	if c.Validation.Engine.Formats == "" {
		return nil, nil
	}
	var formats map[string]string
	if err := json.Unmarshal([]byte(c.Validation.Engine.Formats), &formats); err != nil {
		return nil, verrors.InvalidOpts("validation-engine-formats must be a JSON object of strings: %s", err)
	}
	return formats, nil
}

// WatchedPaths lists every non-empty input path.
func (c Config) WatchedPaths() []string {
	var paths []string
	for _, p := range []string{c.SchemaPath, c.PolicyPath, c.DataPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
