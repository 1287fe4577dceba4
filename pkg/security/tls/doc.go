/*
Package tls configures the relay's HTTPS listener.

	reloader := tls.NewCertificateReloader(certFile, keyFile, 0, logger)
	if err := reloader.Start(ctx); err != nil {
		return err
	}
	tlsConfig, err := tls.NewServerConfig(cfg.Security.TLS, reloader)

With a reloader the certificate is re-read whenever the certificate or key
file changes on disk (fsnotify), so renewals need no restart. Without one the
key pair is loaded once at startup.
*/
package tls
