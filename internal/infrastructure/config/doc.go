// Package config provides 12-factor configuration for the portal server.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags in cmd/server override a few of them.
//
// Configuration Sections:
//   - Server: listen address and shutdown grace period
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - Catalog: catalog and whitelist sources, snapshot cache lifetime
//   - Launch: launch token lifetime and purge interval
//   - Proxy: transport prefixes, alternative engine switch, omnibox search
//   - Tunnel: tunnel endpoint override, default and static-mode candidates
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Serving %s on %s:%s\n", cfg.Catalog.Path, cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CATALOG_PATH, WHITELIST_PATH, CATALOG_CACHE_MS
//   - LAUNCH_TTL_MS, LAUNCH_PURGE_INTERVAL
//   - SCRAMJET, PRIMARY_PREFIX, ALTERNATIVE_PREFIX, DIRECT_FALLBACK, SEARCH_ENGINE, BRAND
//   - TUNNEL_ENDPOINT, TUNNEL_DEFAULT_ENDPOINT, STATIC, TUNNEL_CANDIDATES,
//     TUNNEL_PROBE_TIMEOUT, TRANSPORT_ACTIVATION_TIMEOUT
package config
