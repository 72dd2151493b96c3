// Package middleware provides the HTTP cross-cutting layers: CORS for
// the host UI origin and per-client rate limiting.
package middleware
