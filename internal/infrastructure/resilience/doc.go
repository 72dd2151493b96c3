/*
Package resilience provides retry with exponential backoff and a circuit
breaker for the status-probe path.

# Retry

Retry runs an operation with doubling delays capped at MaxDelay. The
default predicate refuses to retry permission, DNS-not-found, validation
and authentication failures; everything else is treated as transient.

	attempts, err := resilience.Retry(ctx, op, resilience.RetryOptions{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	})

# Breaker

Breaker keeps a flapping remote document from hot-looping reconnect
attempts:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
*/
package resilience
