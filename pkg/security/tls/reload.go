package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces the burst of events a certificate renewal
// produces (write cert, write key, rename).
const DefaultReloadDebounce = 200 * time.Millisecond

// CertificateReloader serves a certificate that is reloaded from disk when
// the certificate or key file changes. A failed reload keeps the previous
// certificate.
type CertificateReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	reloads  int
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	doneChan chan struct{}
}

// NewCertificateReloader creates a reloader. A zero debounce uses
// DefaultReloadDebounce.
func NewCertificateReloader(certFile, keyFile string, debounce time.Duration, logger *slog.Logger) *CertificateReloader {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: debounce,
		logger:   logger.With("component", "tls.reloader"),
	}
}

// Start loads the certificate and watches its files until ctx is done. The
// parent directories are watched rather than the files so that atomic
// replacements (rename over, symlink swap) are seen.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if err := r.reload(); err != nil {
		return err
	}
	r.logCertificateInfo()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.mu.Lock()
	r.watcher = watcher
	r.doneChan = make(chan struct{})
	r.mu.Unlock()

	go r.watch(ctx, watcher)
	return nil
}

// Done is closed when the watch loop exits.
func (r *CertificateReloader) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doneChan
}

func (r *CertificateReloader) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(r.doneChan)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.timer != nil {
				r.timer.Stop()
			}
			r.mu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			r.logger.Debug("certificate file event", "path", event.Name, "op", event.Op.String())
			r.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

// relevant filters out chmod-only events and files other than ours. Events
// on Kubernetes-style "..data" links are kept.
func (r *CertificateReloader) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == filepath.Clean(r.certFile) || name == filepath.Clean(r.keyFile) {
		return true
	}
	return filepath.Base(name) == "..data"
}

func (r *CertificateReloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.reload(); err != nil {
			r.logger.Error("failed to reload certificate",
				"error", err,
				"cert_file", r.certFile,
				"key_file", r.keyFile,
			)
			return
		}
		r.logger.Info("certificate reloaded", "cert_file", r.certFile)
		r.logCertificateInfo()
	})
}

func (r *CertificateReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.reloads++
	r.mu.Unlock()
	return nil
}

// GetCertificate returns the current certificate.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// Reloads returns how many times a certificate was loaded successfully.
func (r *CertificateReloader) Reloads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reloads
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert := r.GetCertificate()
		if cert == nil {
			return nil, fmt.Errorf("no certificate loaded")
		}
		return cert, nil
	}
}

func (r *CertificateReloader) logCertificateInfo() {
	cert := r.GetCertificate()
	if cert == nil || len(cert.Certificate) == 0 {
		return
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}

	days, warning := CheckCertificateExpiration(x509Cert, time.Now())
	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", x509Cert.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
		)
		return
	}
	r.logger.Info("certificate loaded",
		"subject", x509Cert.Subject.CommonName,
		"issuer", x509Cert.Issuer.CommonName,
		"expires_in_days", days,
		"expires_at", x509Cert.NotAfter.Format(time.RFC3339),
	)
}
