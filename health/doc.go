// Package health reports whether the configured caches can be invalidated.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. CacheChecker
// pings caches that implement cache.Pinger (Redis) and reports in-process
// caches as healthy. An Aggregator runs checks in parallel with a deadline.
//
//	agg := health.NewAggregator()
//	if err := agg.RegisterCaches(caches); err != nil {
//	    return err
//	}
//	http.ListenAndServe(":8081", health.NewRouter(agg))
//
// Routes are /healthz (liveness), /readyz (readiness), /health (JSON report)
// and /health/{name} (single check, e.g. /health/cache:orders).
package health
