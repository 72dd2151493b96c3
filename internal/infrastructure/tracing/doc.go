// Package tracing provides lightweight request tracing: spans carry a
// ULID trace id through the request context and are emitted through
// the structured logger. The host UI can pass X-Trace-ID to correlate
// its own logs with the service's.
package tracing
