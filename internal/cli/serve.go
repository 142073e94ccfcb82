package cli

import (
	"context"
	"fmt"
	"time"

	"kandrai/internal/config"
	"kandrai/internal/observability"
	"kandrai/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kandrai HTTP API",
	Long: `Start the HTTP API used by the Kandrai front-end.

Available endpoints:
- GET /: Service banner
- GET /health: Liveness and upstream credential status
- GET /stats: Runtime configuration and circuit breaker state
- GET /openapi.json: Route description
- POST /analyze: Analyze a candidate against a job description
- POST /extract: Extract text from an uploaded .txt or .pdf file

The upstream credential is read on every request (environment variable, config
value, then Vault), so the server starts without one and /analyze answers 503
until it is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().Int64("max-request-size", 0, "Request body limit in bytes, 0 keeps the config value")
}

// applyServeFlags copies explicitly set flags over the loaded configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		port, err := flags.GetString("port")
		if err != nil {
			return err
		}
		cfg.Server.Port = port
	}
	if flags.Changed("host") {
		host, err := flags.GetString("host")
		if err != nil {
			return err
		}
		cfg.Server.Host = host
	}
	if flags.Changed("max-request-size") {
		size, err := flags.GetInt64("max-request-size")
		if err != nil {
			return err
		}
		if size < 0 {
			return fmt.Errorf("--max-request-size must not be negative")
		}
		if size > 0 {
			cfg.Server.MaxRequestSize = size
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}

	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	svc := buildServices(cfg, om, logger)

	return server.NewServer(cfg, Version, server.Dependencies{
		Analyzer:      svc.Analyzer,
		Extractor:     svc.Extractor,
		LLM:           svc.Accessor,
		Observability: om,
	}, logger).Start()
}
