// Package main is the entry point for the portal server.
//
// The server hosts the catalog, issues launch tokens, redirects play URLs
// to their rewritten paths and reports transport negotiation status.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 2345 -catalog data/apps.json
//
//	# Remote catalog
//	CATALOG_PATH=https://cdn.example.com/apps.yaml ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
