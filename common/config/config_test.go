package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-validation/validation/address"
	"github.com/platform-mesh/graphql-validation/validation/lifecycle"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

func TestConfig_StructInitialization(t *testing.T) {
	cfg := Config{}

	assert.Empty(t, cfg.SchemaPath)
	assert.Empty(t, cfg.PolicyPath)
	assert.Empty(t, cfg.DataPath)

	assert.Empty(t, cfg.Validation.Mode)
	assert.False(t, cfg.Validation.DirectiveValidation)
	assert.Empty(t, cfg.Validation.Engine.Formats)

	assert.Empty(t, cfg.Gateway.Port)
	assert.Zero(t, cfg.Gateway.WatchDebounce)
	assert.False(t, cfg.Gateway.HandlerCfg.Pretty)
	assert.False(t, cfg.Gateway.HandlerCfg.Playground)
	assert.False(t, cfg.Gateway.HandlerCfg.GraphiQL)
}

func TestConfig_LifecycleOptions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Config)
		check func(*testing.T, lifecycle.Options)
		err   string
	}{
		{
			name: "json_schema_with_engine_options",
			setup: func(c *Config) {
				c.Validation.Mode = "JSONSchema"
				c.Validation.DirectiveValidation = true
				c.Validation.Engine.AllErrors = true
				c.Validation.Engine.Formats = `{"sku": "^[A-Z]{3}-[0-9]+$"}`
				c.Validation.Engine.MaxErrors = 5
			},
			check: func(t *testing.T, o lifecycle.Options) {
				assert.Equal(t, lifecycle.ModeJSONSchema, o.Mode)
				assert.True(t, o.DirectiveValidation)
				assert.True(t, o.Engine.AllErrors)
				assert.False(t, o.Engine.Verbose)
				assert.Equal(t, "^[A-Z]{3}-[0-9]+$", o.Engine.Formats["sku"])
				assert.Equal(t, 5, o.Engine.MaxErrors)
				assert.Equal(t, address.DefaultBaseURL, o.BaseURL)
				assert.NoError(t, o.Validate())
			},
		},
		{
			name: "jtd_with_custom_base_url",
			setup: func(c *Config) {
				c.Validation.Mode = "JTD"
				c.Validation.BaseURL = "https://example.com/v"
			},
			check: func(t *testing.T, o lifecycle.Options) {
				assert.Equal(t, lifecycle.ModeJTD, o.Mode)
				assert.Equal(t, "https://example.com/v", o.BaseURL)
			},
		},
		{
			name: "no_formats",
			setup: func(c *Config) {
				c.Validation.Mode = "JSONSchema"
			},
			check: func(t *testing.T, o lifecycle.Options) {
				assert.Empty(t, o.Engine.Formats)
			},
		},
		{
			name: "malformed_formats",
			setup: func(c *Config) {
				c.Validation.Engine.Formats = `{"sku": 1}`
			},
			err: verrors.CodeInvalidOpts,
		},
		{
			name: "unknown_mode_is_rejected",
			setup: func(c *Config) {
				c.Validation.Mode = "XML"
			},
			check: func(t *testing.T, o lifecycle.Options) {
				assert.Error(t, o.Validate())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			tt.setup(&cfg)
			opts, err := cfg.LifecycleOptions()
			if tt.err != "" {
				require.Error(t, err)
				assert.Equal(t, tt.err, verrors.Code(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestConfig_WatchedPaths(t *testing.T) {
	cfg := Config{SchemaPath: "schema.graphql", DataPath: "data.yaml"}
	cfg.Gateway.WatchDebounce = time.Second

	assert.Equal(t, []string{"schema.graphql", "data.yaml"}, cfg.WatchedPaths())
	assert.Empty(t, Config{}.WatchedPaths())
}
