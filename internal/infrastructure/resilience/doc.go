/*
Package resilience provides the circuit breaker that guards the remote
filesystem API.

# Overview

When the cloud filesystem is unreachable every item of a batch would
otherwise wait for its own timeout. The breaker fails fast instead, so a
large move or copy surfaces one error per item immediately and the user can
retry later.

Application level failures are classified by Settings.IsSuccessful. The
remote filesystem client treats a same-name conflict as a successful round
trip, because the server answered and the conflict resolver owns it.

# Usage

	breaker := resilience.New("remotefs", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || remotefs.IsConflict(err)
		},
	})

	err := breaker.Call(ctx, func(ctx context.Context) error {
		return doRequest(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open
*/
package resilience
