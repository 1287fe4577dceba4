// Package logging builds glucobridge's log/slog logger.
//
// New returns a JSON or text logger whose handler masks credential material
// before it is written: values under keys such as "api-secret",
// "authorization" or "secret" are replaced outright, and string values are
// scrubbed for bearer tokens and secret= query parameters. Records logged
// with a context also carry the request ID and, when tracing is active, the
// trace ID.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, id)
//	slog.InfoContext(ctx, "entries forwarded", "kept", 12)
package logging
