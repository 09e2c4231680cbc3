package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/platform-mesh/graphql-validation/gateway/registry"
	"github.com/platform-mesh/graphql-validation/gateway/resolver"
	"github.com/platform-mesh/graphql-validation/gateway/schema"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/lifecycle"
	"github.com/platform-mesh/graphql-validation/validation/policy"
	"github.com/platform-mesh/graphql-validation/validation/verrors"
)

var checkCmd = &cobra.Command{
	Use:     "check [schema-path]",
	Short:   "Compile the schema and validation policy without serving them",
	Example: "go run main.go check ./schema.graphql --policy-path ./policy.yaml",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := appCfg.SchemaPath
		if len(args) == 1 {
			schemaPath = args[0]
		}
		return check(cmd, schemaPath, appCfg.PolicyPath)
	},
}

func check(cmd *cobra.Command, schemaPath, policyPath string) error {
	out := cmd.OutOrStdout()

	sdl, err := registry.LoadSDL(schemaPath)
	if err != nil {
		return err
	}

	p := policy.New()
	if policyPath != "" {
		if p, err = policy.Load(policyPath, function.NewCatalog()); err != nil {
			return report(out, err)
		}
	}

	unresolved := p.Unresolved(sdl)
	for _, a := range unresolved {
		fmt.Fprintf(out, "warning: policy names %s which is missing from the schema\n", a.Dotted())
	}

	exec, err := schema.New(log, resolver.New(log, nil)).Build(sdl)
	if err != nil {
		return err
	}

	opts, err := appCfg.LifecycleOptions()
	if err != nil {
		return report(out, err)
	}
	coordinator, err := lifecycle.New(opts, log)
	if err != nil {
		return report(out, err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	gen, err := coordinator.Reload(ctx, p, sdl, exec)
	if err != nil {
		return report(out, err)
	}

	fmt.Fprintf(out, "mode: %s\n", appCfg.Validation.Mode)
	fmt.Fprintf(out, "declarative validators: %d\n", gen.Declarative.Len())
	fmt.Fprintf(out, "function validators: %d\n", gen.Functions.Len())
	fmt.Fprintf(out, "directive validators: %d\n", gen.Directive.Len())
	for _, a := range gen.Wrapped {
		fmt.Fprintf(out, "validated field: %s\n", a.Dotted())
	}
	fmt.Fprintf(out, "ok, %d unresolved policy entries\n", len(unresolved))
	return nil
}

func report(out io.Writer, err error) error {
	if code := verrors.Code(err); code != "" {
		fmt.Fprintf(out, "error [%s]: %s\n", code, err)
	}
	return err
}
