package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	openmfpconfig "github.com/platform-mesh/golang-commons/config"
	"github.com/platform-mesh/golang-commons/logger"

	"github.com/platform-mesh/graphql-validation/common/config"
)

var (
	appCfg     config.Config
	defaultCfg *openmfpconfig.CommonServiceConfig
	v          *viper.Viper
	log        *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "graphql-validation",
	Short: "GraphQL gateway validating field arguments with JSON Schema, JTD, functions and @constraint",
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(directiveCmd)

	var err error
	v, defaultCfg, err = openmfpconfig.NewDefaultConfig(rootCmd)
	if err != nil {
		panic(err)
	}

	cobra.OnInitialize(func() {
		var err error
		log, err = setupLogger(defaultCfg.Log.Level)
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	})

	err = openmfpconfig.BindConfigToFlags(v, gatewayCmd, &appCfg)
	if err != nil {
		panic(err)
	}

	// viper is bound to the gateway flags, so check parses into the same flag values.
	checkCmd.Flags().AddFlagSet(gatewayCmd.Flags())
}

// setupLogger initializes the logger with the given log level
func setupLogger(logLevel string) (*logger.Logger, error) {
	loggerCfg := logger.DefaultConfig()
	loggerCfg.Name = "graphqlValidation"
	loggerCfg.Level = logLevel
	return logger.New(loggerCfg)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
