package main

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glucobridge/relay/pkg/config"
	"glucobridge/relay/pkg/security/tls"
)

// validateReport summarizes an accepted configuration. Secrets are reported
// by presence only.
type validateReport struct {
	Valid           bool     `json:"valid"`
	ListenAddress   string   `json:"listen_address"`
	Upstream        string   `json:"upstream"`
	InboundAuth     bool     `json:"inbound_auth"`
	OutboundAuth    bool     `json:"outbound_auth"`
	Channels        []string `json:"channels"`
	RetryEmptyReads bool     `json:"retry_empty_reads"`
	ProbeSchedule   string   `json:"probe_schedule,omitempty"`
	TLS             bool     `json:"tls"`
	CertExpiresDays int      `json:"cert_expires_days,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (r validateReport) String() string {
	var sb strings.Builder
	sb.WriteString("✓ Configuration valid\n")
	fmt.Fprintf(&sb, "  Listen address:    %s\n", r.ListenAddress)
	fmt.Fprintf(&sb, "  Upstream:          %s\n", r.Upstream)
	fmt.Fprintf(&sb, "  Inbound auth:      %s\n", enabledString(r.InboundAuth))
	fmt.Fprintf(&sb, "  Outbound auth:     %s\n", enabledString(r.OutboundAuth))
	if r.OutboundAuth {
		fmt.Fprintf(&sb, "  Channels:          %s\n", strings.Join(r.Channels, ", "))
	}
	fmt.Fprintf(&sb, "  Retry empty reads: %s\n", enabledString(r.RetryEmptyReads))
	if r.ProbeSchedule != "" {
		fmt.Fprintf(&sb, "  Upstream probe:    %s\n", r.ProbeSchedule)
	}
	fmt.Fprintf(&sb, "  TLS:               %s", enabledString(r.TLS))
	if r.TLS {
		fmt.Fprintf(&sb, " (certificate expires in %d days)", r.CertExpiresDays)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "\n⚠ %s", w)
	}
	return sb.String()
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration the same way "run" does and report the result.

Every invalid field is reported. When TLS is enabled the certificate and key
are loaded and the certificate's validity window is checked.

Examples:
  # Validate a configuration file
  glucobridge validate --config config.yaml

  # Validate environment-only configuration as JSON
  TARGET_BASE=https://ns.example.com glucobridge validate -o json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	report, err := buildReport(cfg, time.Now())
	if err != nil {
		return err
	}
	return f.FormatTo(cmd.OutOrStdout(), report)
}

func buildReport(cfg *config.Config, now time.Time) (validateReport, error) {
	ch := cfg.Auth.Channels
	var channels []string
	if config.Enabled(ch.PlainHeader, true) {
		channels = append(channels, "api-secret")
	}
	if config.Enabled(ch.BearerHeader, true) {
		channels = append(channels, "bearer")
	}
	if config.Enabled(ch.HashedQuery, true) {
		channels = append(channels, "query")
	}

	report := validateReport{
		Valid:           true,
		ListenAddress:   cfg.Proxy.ListenAddress,
		Upstream:        cfg.Upstream.BaseURL,
		InboundAuth:     cfg.Auth.InboundSecret != "",
		OutboundAuth:    cfg.Auth.OutboundSecret != "",
		Channels:        channels,
		RetryEmptyReads: config.Enabled(cfg.Upstream.RetryEmptyReads, config.DefaultRetryEmptyReads),
		ProbeSchedule:   cfg.Upstream.ProbeSchedule,
		TLS:             cfg.Security.TLS.Enabled,
	}
	if !report.InboundAuth {
		report.Warnings = append(report.Warnings, "no inbound secret: requests are not authenticated")
	}

	if cfg.Security.TLS.Enabled {
		tlsConfig, err := tls.NewServerConfig(cfg.Security.TLS, nil)
		if err != nil {
			return report, fmt.Errorf("TLS: %w", err)
		}
		leaf, err := x509.ParseCertificate(tlsConfig.Certificates[0].Certificate[0])
		if err != nil {
			return report, fmt.Errorf("TLS: failed to parse certificate: %w", err)
		}
		if err := tls.ValidateX509Certificate(leaf, now); err != nil {
			return report, fmt.Errorf("TLS: %w", err)
		}
		days, warning := tls.CheckCertificateExpiration(leaf, now)
		report.CertExpiresDays = days
		if warning != "" {
			report.Warnings = append(report.Warnings, warning)
		}
	}

	return report, nil
}

func enabledString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
