// Package ws streams status-changed events to the host UI over
// WebSocket. Every observed connection, login and lifecycle transition
// is forwarded as one JSON message; slow subscribers miss events
// rather than stalling the core.
package ws
