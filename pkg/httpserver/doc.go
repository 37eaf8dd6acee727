// Package httpserver runs the small HTTP endpoint a background service
// exposes for operations: liveness, readiness and Prometheus metrics.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	handler := httpserver.OpsHandler(registry, log,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//	)
//	return srv.Run(ctx, handler)
//
// Run returns once ctx is done and in-flight requests have drained or the
// shutdown timeout elapsed.
package httpserver
