// Package session provides isolated per-account session contexts.
//
// Each account gets a deterministic storage partition under
// profiles/account_<id> holding its cookies, cache and local state.
// Contexts are created on first need and never shared: two account ids
// never resolve to the same partition, and storage for one account is
// never reachable through another's context.
//
// The provider owns the context map exclusively. Releasing a context
// drops the in-memory handle only; deleting on-disk session data is a
// separate, explicit operation invoked by account deletion or recovery.
package session
