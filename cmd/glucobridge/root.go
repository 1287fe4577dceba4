package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"glucobridge/relay/pkg/cli"
	"glucobridge/relay/pkg/config"
	"glucobridge/relay/pkg/security/secrets"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "glucobridge",
	Short: "glucobridge - GuardianMonitor to Nightscout relay",
	Long: `glucobridge is a stateless HTTP relay between the GuardianMonitor app and a
Nightscout-compatible upstream.

For every entries request it:
  - Authenticates the app with a shared secret
  - Repairs doubled and future-dated entry timestamps
  - Presents the upstream's own credential
  - Relays the upstream reply unchanged

Configuration comes from an optional YAML file (--config) overlaid with
GLUCOBRIDGE_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the mapped exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		for _, line := range errorLines(err) {
			fmt.Fprintln(os.Stderr, line)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (environment only when empty)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json")
}

// loadConfig loads the configuration named by --config and resolves secret
// references. Failures come back as configuration errors so that they exit
// with the config exit code.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		if cli.ExitCode(err) == cli.ExitConfig {
			return nil, err
		}
		return nil, cli.NewConfigError("", err.Error())
	}

	manager, err := secrets.ForAuth(&cfg.Auth, slog.Default())
	if err != nil {
		return nil, cli.NewConfigError("auth.secrets_dir", err.Error())
	}
	if err := manager.ResolveAuth(ctx, &cfg.Auth); err != nil {
		return nil, err
	}
	return cfg, nil
}

// formatter returns the formatter selected by --output.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

func errorLines(err error) []string {
	if cli.ExitCode(err) != cli.ExitConfig {
		return []string{"Error: " + err.Error()}
	}
	var lines []string
	for _, ce := range cli.ConfigErrors(err) {
		lines = append(lines, "Error: "+ce.Error())
	}
	return lines
}
