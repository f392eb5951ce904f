/*
Package resilience provides a circuit breaker.

The portal uses one breaker per tunnel endpoint candidate, so candidates
that keep failing are skipped quickly by later negotiations and retried
once their open timeout has passed.

# Usage

	probes := resilience.NewGroup(resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	err := probes.Get(endpoint).Run(func() error {
		return prober.Probe(ctx, endpoint)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
