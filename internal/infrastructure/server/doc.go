// Package server assembles the portal: configuration, logging, metrics, the
// catalog and launch stores, the transport negotiator and the gin router.
package server
