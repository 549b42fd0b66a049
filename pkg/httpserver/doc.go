// Package httpserver runs notifyd's HTTP surface with context-driven
// graceful shutdown.
//
// Handler puts the liveness and readiness endpoints and, when configured,
// the metrics handler in front of the application router. Run blocks until
// its context ends, which makes it a natural errgroup member:
//
//	srv := httpserver.NewFromConfig(cfg,
//	    httpserver.WithLogger(log),
//	    httpserver.WithReadinessChecks(httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(db)}),
//	    httpserver.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
//	)
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Run wraps listen errors with ErrStart and Shutdown wraps shutdown errors
// with ErrShutdown.
package httpserver
