/*
Package negotiator brings the rewriting transports to a ready state and
decides how to retry a frame that failed to load.

# Negotiation

A negotiation walks a fixed sequence of states:

	uninitialized -> initializing-runtime -> registering-transports
	              -> discovering-endpoint -> ready

and can end in failed from any step. Runtime and worker problems are not
fatal: a missing alternative runtime just removes that transport, and a
worker that never activates is kept best-effort. Only the lack of a tunnel
endpoint fails a negotiation.

Negotiations are memoized per configuration fingerprint. Concurrent calls
with the same configuration share one in-flight run, and a ready result is
reused until the configuration changes.

# Frame retries

A Session holds the ordered, de-duplicated list of modes to try for one
launch. Each frame issue (timeout, error, or the portal's own shell showing
up inside the frame) moves to the next mode until the list runs out.
*/
package negotiator
