package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openmfpcontext "github.com/platform-mesh/golang-commons/context"
	"github.com/platform-mesh/golang-commons/logger"
	"github.com/platform-mesh/golang-commons/sentry"
	"github.com/platform-mesh/golang-commons/traces"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platform-mesh/graphql-validation/common/watcher"
	"github.com/platform-mesh/graphql-validation/gateway/handler"
	gatewayhttp "github.com/platform-mesh/graphql-validation/gateway/http"
	"github.com/platform-mesh/graphql-validation/gateway/registry"
	"github.com/platform-mesh/graphql-validation/validation/function"
	"github.com/platform-mesh/graphql-validation/validation/lifecycle"
)

var gatewayCmd = &cobra.Command{
	Use:     "gateway",
	Short:   "Serve the schema with argument validation",
	Example: "go run main.go gateway --schema-path ./schema --policy-path ./policy.yaml",
	Run: func(_ *cobra.Command, _ []string) {
		log.Info().Str("LogLevel", log.GetLevel().String()).Msg("Starting the Gateway...")

		ctx, _, shutdown := openmfpcontext.StartContext(log, appCfg, 1*time.Second)
		defer shutdown()

		if err := initializeSentry(ctx, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Sentry")
		}

		opts, err := appCfg.LifecycleOptions()
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid validation options")
		}
		coordinator, err := lifecycle.New(opts, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid validation options")
		}

		reg := registry.New(log, registry.Paths{
			Schema: appCfg.SchemaPath,
			Policy: appCfg.PolicyPath,
			Data:   appCfg.DataPath,
		}, function.NewCatalog(), coordinator)

		if _, err := reg.Load(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to build the first generation")
		}

		tracingShutdown, err := initializeTracing(ctx, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			if err := tracingShutdown(ctx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown TracerProvider")
			}
		}()

		if err := runServers(ctx, log, reg); err != nil {
			log.Fatal().Err(err).Msg("Failed to run servers")
		}
	},
}

func initializeSentry(ctx context.Context, log *logger.Logger) error {
	if defaultCfg.Sentry.Dsn == "" {
		return nil
	}

	err := sentry.Start(ctx,
		defaultCfg.Sentry.Dsn, defaultCfg.Environment, defaultCfg.Region,
		defaultCfg.Image.Name, defaultCfg.Image.Tag,
	)
	if err != nil {
		return fmt.Errorf("sentry init failed: %w", err)
	}

	defer openmfpcontext.Recover(log)
	return nil
}

func initializeTracing(ctx context.Context, log *logger.Logger) (func(ctx context.Context) error, error) {
	if defaultCfg.Tracing.Enabled {
		shutdown, err := traces.InitProvider(ctx, defaultCfg.Tracing.Collector)
		if err != nil {
			return nil, fmt.Errorf("unable to start gRPC-Sidecar TracerProvider: %w", err)
		}
		return shutdown, nil
	}

	shutdown, err := traces.InitLocalProvider(ctx, defaultCfg.Tracing.Collector, false)
	if err != nil {
		return nil, fmt.Errorf("unable to start local TracerProvider: %w", err)
	}
	return shutdown, nil
}

func createServers(reg *registry.Registry) []gatewayhttp.Server {
	gateway := handler.New(log, reg, handler.Config{
		Pretty:     appCfg.Gateway.HandlerCfg.Pretty,
		Playground: appCfg.Gateway.HandlerCfg.Playground,
		GraphiQL:   appCfg.Gateway.HandlerCfg.GraphiQL,
	})

	return []gatewayhttp.Server{
		gatewayhttp.NewServer(log, gatewayhttp.ServerConfig{
			Handler: gatewayhttp.GraphQLMux(gateway),
			Addr:    fmt.Sprintf(":%s", appCfg.Gateway.Port),
		}),
		gatewayhttp.NewServer(log, gatewayhttp.ServerConfig{
			Handler: gatewayhttp.MetricsMux(),
			Addr:    defaultCfg.Metrics.BindAddress,
		}),
		gatewayhttp.NewServer(log, gatewayhttp.ServerConfig{
			Handler: gatewayhttp.HealthMux(reg.Ready),
			Addr:    defaultCfg.HealthProbeBindAddress,
		}),
	}
}

func shutdownServers(ctx context.Context, log *logger.Logger, servers ...gatewayhttp.Server) {
	log.Info().Msg("Shutting down HTTP servers...")

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr()).Msg("HTTP server shutdown failed")
		}
	}
}

func runServers(ctx context.Context, log *logger.Logger, reg *registry.Registry) error {
	servers := createServers(reg)

	eg, egCtx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		eg.Go(func() error {
			if err := srv.Run(egCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s error: %w", srv.Addr(), err)
			}
			return nil
		})
	}

	if !appCfg.Gateway.DisableWatching {
		fw, err := watcher.NewFileWatcher(reg, log)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			return fw.Watch(egCtx, appCfg.WatchedPaths(), appCfg.Gateway.WatchDebounce)
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCfg.ShutdownTimeout)
		defer cancel()

		shutdownServers(shutdownCtx, log, servers...)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server shut down successfully")
	return nil
}
