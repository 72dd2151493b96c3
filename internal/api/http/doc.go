// Package http exposes the lifecycle core over a JSON API: view
// switching and destruction, status queries, memory and performance
// telemetry, geometry, account CRUD and the recovery operations.
package http
