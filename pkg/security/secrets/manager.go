package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"glucobridge/relay/pkg/config"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager tries each provider in order until one returns a value.
type Manager struct {
	providers []SecretProvider
	logger    *slog.Logger
}

// NewManager creates a manager over providers, tried in order.
func NewManager(logger *slog.Logger, providers ...SecretProvider) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{providers: providers, logger: logger}
}

// ForAuth builds the manager for cfg: the secrets directory first when one
// is configured, then the environment.
func ForAuth(cfg *config.AuthConfig, logger *slog.Logger) (*Manager, error) {
	var providers []SecretProvider
	if cfg.SecretsDir != "" {
		fp, err := NewFileProvider(cfg.SecretsDir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(DefaultEnvPrefix))
	return NewManager(logger, providers...), nil
}

// GetSecret retrieves a secret from the first provider that supports it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}
		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			m.logger.Debug("provider failed to get secret",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			continue
		}
		m.logger.Debug("secret retrieved",
			"provider", provider.Provider(),
			"name", redactSecretName(name),
		)
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("secret not found: %q", name)
}

// ResolveReferences replaces every ${secret:name} in input. Input without
// references is returned unchanged.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []string

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(secretRefRegex.FindStringSubmatch(match)[1])
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err.Error())
			return match
		}
		return value
	})

	if len(errs) > 0 {
		return "", fmt.Errorf("failed to resolve secret references: %s", strings.Join(errs, "; "))
	}
	return output, nil
}

// ResolveAuth resolves references in both auth secrets in place.
func (m *Manager) ResolveAuth(ctx context.Context, cfg *config.AuthConfig) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"auth.inbound_secret", &cfg.InboundSecret},
		{"auth.outbound_secret", &cfg.OutboundSecret},
	}
	for _, f := range fields {
		resolved, err := m.ResolveReferences(ctx, *f.dst)
		if err != nil {
			return config.ValidationError{Errors: []config.FieldError{{Field: f.name, Message: err.Error()}}}
		}
		*f.dst = resolved
	}
	return nil
}

// redactSecretName keeps the first and last two characters.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
