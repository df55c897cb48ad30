/*
Package resilience provides the circuit breaker guarding calls to flaky
external tools: the adb/aapt bridge to the Android subsystem and the HTTP
fetches used to resolve web app titles.

# Usage

	breaker := resilience.New("android-bridge", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	pid, err := resilience.Call(ctx, breaker, func(ctx context.Context) (int, error) {
		return bridge.launch(ctx, pkg)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure] -> Open

Caller cancellation never counts as a failure.
*/
package resilience
