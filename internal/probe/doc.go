/*
Package probe turns the remote chat document into coarse connection and
login signals.

Detection is inherently heuristic: the default implementation inspects
document structure (a content pane selector for "the chat is up", an
auth-prompt expression for "logged out") and checks network
reachability with a bounded HEAD request. The Probe interface exists so
a push-based signal can replace the heuristics without touching the
lifecycle manager.

Probes are rate limited per account and routed through a circuit
breaker so a flapping remote document cannot hot-loop the monitors.
*/
package probe
