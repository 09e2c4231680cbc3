package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFlags(t *testing.T) {
	names := []string{
		"schema-path",
		"policy-path",
		"data-path",
		"validation-mode",
		"validation-engine-formats",
		"validation-engine-max-errors",
		"gateway-port",
		"gateway-watch-debounce",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			gatewayFlag := gatewayCmd.Flags().Lookup(name)
			require.NotNil(t, gatewayFlag)
			assert.Same(t, gatewayFlag, checkCmd.Flags().Lookup(name))
		})
	}
}

func TestConfigFlags_CheckValuesReachViper(t *testing.T) {
	flag := checkCmd.Flags().Lookup("validation-mode")
	require.NotNil(t, flag)
	previous := flag.Value.String()
	t.Cleanup(func() {
		_ = flag.Value.Set(previous)
	})

	require.NoError(t, checkCmd.Flags().Set("validation-mode", "JTD"))
	assert.Equal(t, "JTD", v.GetString("validation-mode"))
}
