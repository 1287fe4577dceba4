package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glucobridge/relay/pkg/cli"
	"glucobridge/relay/pkg/credentials"
)

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, outputFormat = "", "text"
	runFlags.listenAddress, runFlags.logLevel, runFlags.dryRun = "", "", false
	t.Cleanup(func() {
		cfgFile, outputFormat = "", "text"
		runFlags.listenAddress, runFlags.logLevel, runFlags.dryRun = "", "", false
	})

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// clearEnv unsets the legacy variables so a developer shell does not leak
// into the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TARGET_BASE", "INBOUND_SECRET", "OUTBOUND_SECRET", "NIGHTSCOUT_API_SECRET", "PORT"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestHashCommand(t *testing.T) {
	want := credentials.HashSecret("my secret")

	out, err := executeCommand(t, "", "hash", "my secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("hash = %q, want %q", out, want)
	}

	out, err = executeCommand(t, "my secret\n", "hash")
	if err != nil {
		t.Fatalf("hash from stdin: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("stdin hash = %q, want %q", out, want)
	}

	out, err = executeCommand(t, "", "hash", "my secret", "-o", "json")
	if err != nil {
		t.Fatalf("hash json: %v", err)
	}
	var got hashResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v: %s", err, out)
	}
	if got.Hash != want || got.Length != len("my secret") {
		t.Errorf("json result = %+v", got)
	}

	if _, err := executeCommand(t, "", "hash"); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestValidateCommand(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  base_url: https://ns.example.com
auth:
  inbound_secret: in
  outbound_secret: out
  channels:
    hashed_query: false
`)

	out, err := executeCommand(t, "", "validate", "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var report validateReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v: %s", err, out)
	}
	if !report.Valid || report.Upstream != "https://ns.example.com" {
		t.Errorf("report = %+v", report)
	}
	if strings.Join(report.Channels, ",") != "api-secret,bearer" {
		t.Errorf("channels = %v", report.Channels)
	}
	if strings.Contains(out, `"in"`) || strings.Contains(out, `"out"`) {
		t.Errorf("secrets leaked into report: %s", out)
	}

	text, err := executeCommand(t, "", "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate text: %v", err)
	}
	if !strings.Contains(text, "✓ Configuration valid") {
		t.Errorf("text output = %q", text)
	}
}

func TestValidateCommand_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARGET_BASE", "https://env.example.com")

	out, err := executeCommand(t, "", "validate", "-o", "json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var report validateReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Upstream != "https://env.example.com" {
		t.Errorf("upstream = %q", report.Upstream)
	}
	if report.InboundAuth || len(report.Warnings) == 0 {
		t.Error("open mode should be reported with a warning")
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	clearEnv(t)

	_, err := executeCommand(t, "", "validate")
	if err == nil {
		t.Fatal("expected error without an upstream")
	}
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
	lines := errorLines(err)
	if len(lines) == 0 || !strings.Contains(strings.Join(lines, "\n"), "upstream.base_url") {
		t.Errorf("error lines = %v", lines)
	}

	_, err = executeCommand(t, "", "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("missing file exit code = %d", cli.ExitCode(err))
	}
}

func TestValidateCommand_TLS(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  base_url: https://ns.example.com
security:
  tls:
    enabled: true
    cert_file: /nonexistent/cert.pem
    key_file: /nonexistent/key.pem
`)
	if _, err := executeCommand(t, "", "validate", "--config", path); err == nil {
		t.Error("expected TLS load failure")
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARGET_BASE", "https://ns.example.com")

	out, err := executeCommand(t, "", "run", "--dry-run", "--listen", "127.0.0.1:0", "--log-level", "error")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("output = %q", out)
	}
}

func TestRunCommand_BadOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TARGET_BASE", "https://ns.example.com")

	_, err := executeCommand(t, "", "run", "--dry-run", "--log-level", "loud")
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "glucobridge "+Version) {
		t.Errorf("output = %q", out)
	}

	out, err = executeCommand(t, "", "version", "-o", "json")
	if err != nil {
		t.Fatalf("version json: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["version"] != Version || info["commit"] != GitCommit {
		t.Errorf("info = %v", info)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{"run": false, "validate": false, "hash": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestValidateCommand_SecretReferences(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "guardian"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GLUCOBRIDGE_SECRET_NIGHTSCOUT", "from-env")

	path := writeConfig(t, `
upstream:
  base_url: https://ns.example.com
auth:
  secrets_dir: `+dir+`
  inbound_secret: ${secret:guardian}
  outbound_secret: ${secret:nightscout}
`)
	out, err := executeCommand(t, "", "validate", "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var report validateReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.InboundAuth || !report.OutboundAuth {
		t.Errorf("report = %+v", report)
	}

	missing := writeConfig(t, `
upstream:
  base_url: https://ns.example.com
auth:
  inbound_secret: ${secret:not-configured-anywhere}
`)
	_, err = executeCommand(t, "", "validate", "--config", missing)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("unresolved reference exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}
