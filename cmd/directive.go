package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platform-mesh/graphql-validation/validation/directive"
)

var directiveCmd = &cobra.Command{
	Use:   "directive",
	Short: "Print the @constraint directive definition to include in a schema",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), directive.TypeDefs)
	},
}
