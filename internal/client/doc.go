// Package client is a Go SDK for the portal HTTP API.
//
// Besides thin wrappers over each endpoint, Play runs a launch the way the
// browser does: negotiate transports, resolve the launch token and walk the
// attempt list until a frame loads the target.
package client
