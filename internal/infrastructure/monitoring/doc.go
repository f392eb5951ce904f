/*
Package monitoring provides Prometheus metrics for the portal.

# Overview

Each Metrics value owns a private registry. Nothing is registered on the
global default registry, so tests can build as many servers as they like.

# Tracked

- HTTP request counts, latency and response size per route template
- Launch outcomes by mode and error code
- Play token resolutions, live token count, janitor purges
- Catalog reloads and snapshot size
- Transport negotiations and tunnel endpoint probes

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordLaunch("primary", "ok", time.Since(start))
*/
package monitoring
