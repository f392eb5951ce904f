// Package http provides the portal's HTTP handlers.
//
// Routes:
//   - GET  /api/catalog     catalog snapshot
//   - POST /api/launch      issue a launch token for a catalog entry
//   - GET  /play/:token     redirect a launch token to its play path
//   - POST /api/rewrite     omnibox input to play path
//   - GET  /api/decode      play path back to its target URL
//   - GET  /api/transport   transport negotiation status
//   - GET  /health, /healthz
package http
