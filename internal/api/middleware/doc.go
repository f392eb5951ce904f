// Package middleware provides the HTTP middleware of the portal server.
//
// Middleware stack, outermost first:
//   - RequestID: X-Request-ID on every request and response (ULID based)
//   - AccessLog: one zap line per request
//   - CORS: cross-origin access to the public API
//   - RateLimit: per-IP token bucket, idle addresses are forgotten
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.AccessLog(logger.Component("http")))
//	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
