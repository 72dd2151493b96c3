// Package paths provides the standardized on-disk layout for per-account
// session storage. Every component derives profile and backup locations
// through this package so the partition convention stays in one place.
package paths
