package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider loads secrets from individual files in a directory, the way
// Docker and Kubernetes mount them. Symlinked files are followed.
type FileProvider struct {
	BasePath string
}

// NewFileProvider creates a file-based secret provider rooted at basePath.
func NewFileProvider(basePath string) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", basePath)
	}
	return &FileProvider{BasePath: basePath}, nil
}

// GetSecret reads <BasePath>/<name>. Surrounding whitespace is trimmed.
// Files writable by group or others are refused.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	path, err := p.path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret file not found: %s", name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return "", fmt.Errorf("insecure permissions on %s: %o (must not be group or world writable)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath above
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Provider returns the provider name.
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether a file named name exists in the directory.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// path joins name onto BasePath, refusing anything that escapes it.
func (p *FileProvider) path(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	return filepath.Join(p.BasePath, name), nil
}
