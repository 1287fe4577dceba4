// Package health provides the liveness and readiness endpoints of the relay.
//
// Liveness (/health) answers {"ok":true} while the process serves requests.
// Readiness (/ready) runs the registered checks concurrently, each bounded by
// the checker's timeout, and answers 503 while any of them is unhealthy.
//
// The upstream check does not call the upstream inline. An UpstreamProbe
// requests a cheap upstream path on a cron schedule and the readiness check
// reports its last result:
//
//	probe := health.NewUpstreamProbe(health.ProbeOptions{
//	    Schedule:  "@every 30s",
//	    Request:   forward.Request{Method: http.MethodGet, Target: target},
//	    Forwarder: client,
//	    Gauge:     collector,
//	})
//	checker.RegisterCheck("upstream", probe.Check)
//	_ = probe.Start(ctx)
package health
