package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"glucobridge/relay/pkg/cli"
	"glucobridge/relay/pkg/config"
	"glucobridge/relay/pkg/server"
	"glucobridge/relay/pkg/telemetry/logging"
	"glucobridge/relay/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay",
	Long: `Start the relay with the specified configuration.

The server listens on the configured address and relays entries requests to
the upstream until SIGINT or SIGTERM, then drains in-flight requests.

Examples:
  # Start from environment variables only
  TARGET_BASE=https://ns.example.com INBOUND_SECRET=s glucobridge run

  # Start with a config file
  glucobridge run --config /etc/glucobridge/config.yaml

  # Override listen address
  glucobridge run --listen 0.0.0.0:8080

  # Validate config without starting server
  glucobridge run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	srv, err := server.New(cfg, server.Options{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
		Logger:    logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
