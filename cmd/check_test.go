package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/platform-mesh/golang-commons/logger/testlogger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-mesh/graphql-validation/validation/directive"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

func TestCheck(t *testing.T) {
	log = testlogger.New().HideLogOutput().Logger
	appCfg.Validation.Mode = "JSONSchema"
	appCfg.Validation.DirectiveValidation = true

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(directive.TypeDefs+`
type Query {
  message(id: ID @constraint(minLength: 1)): String
  other(text: String): String
}
`), 0o600))

	tests := []struct {
		name     string
		policy   string
		wantErr  string
		contains []string
	}{
		{
			name: "valid_policy",
			policy: `
Query:
  other:
    text: {type: string, maxLength: 5}
  missing:
    id: {type: string}
`,
			contains: []string{
				"warning: policy names Query.missing",
				"declarative validators: 2",
				"validated field: Query.message",
				"validated field: Query.other",
				"ok, 1 unresolved policy entries",
			},
		},
		{
			name:     "invalid_policy",
			policy:   "Query: nope\n",
			wantErr:  verrors.CodeInvalidOpts,
			contains: []string{"error [" + verrors.CodeInvalidOpts + "]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policyPath := filepath.Join(t.TempDir(), "policy.yaml")
			require.NoError(t, os.WriteFile(policyPath, []byte(tt.policy), 0o600))

			var out bytes.Buffer
			c := &cobra.Command{}
			c.SetOut(&out)

			err := check(c, schemaPath, policyPath)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, verrors.Code(err))
			} else {
				require.NoError(t, err)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestDirectiveCommand(t *testing.T) {
	var out bytes.Buffer
	directiveCmd.SetOut(&out)
	directiveCmd.Run(directiveCmd, nil)
	assert.Equal(t, directive.TypeDefs, out.String())
}
