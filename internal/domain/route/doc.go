// Package route decides which rewriting transport serves a target URL and
// builds the browser-relative path that loads it.
//
// Modes:
//   - primary: the default rewriting proxy; paths carry a codec hex token
//   - alternative: the sandboxed rewriting engine; paths carry the
//     percent-encoded URL
//   - direct: no rewriting, the target URL itself (client fallback only)
//
// Everything here is pure: no I/O, no shared state. Identical inputs always
// produce identical outputs, which the client relies on when it walks the
// attempt list after a failed frame load.
package route
