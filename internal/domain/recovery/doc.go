/*
Package recovery heals views and session data after failures.

Transient operations run through bounded exponential-backoff retry.
Reconnection picks its strategy from the view's current connection
status: an errored view gets a full document reload and a settling
wait, an offline view gets the lighter in-page nudge, an online view
is left alone. Auto-reconnect timers repeat the attempt on an interval
until the view is back online or the attempt budget runs out.

Corrupted session data goes through backup-then-reset: the partition
is archived best-effort, wiped, and the view recreated from the
account's current configuration.
*/
package recovery
