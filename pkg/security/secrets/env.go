package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix namespaces secrets read from the environment.
const DefaultEnvPrefix = "GLUCOBRIDGE_SECRET_"

// EnvProvider loads secrets from environment variables.
//
// Secret names are converted to uppercase environment variable names
// with hyphens replaced by underscores, after the prefix:
// "nightscout-api-secret" is read from GLUCOBRIDGE_SECRET_NIGHTSCOUT_API_SECRET.
type EnvProvider struct {
	Prefix string

	lookup func(string) (string, bool)
}

// NewEnvProvider creates a new environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix, lookup: os.LookupEnv}
}

// GetSecret retrieves a secret from an environment variable.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value, ok := p.lookup(envVar)
	if !ok || value == "" {
		return "", fmt.Errorf("secret not found in environment: %s (env var: %s)", name, envVar)
	}
	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports always returns true so the environment acts as the fallback.
func (p *EnvProvider) Supports(name string) bool {
	return true
}

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
