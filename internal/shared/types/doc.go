// Package types defines the shared data model for the view/session
// lifecycle core: accounts, proxy rules, rendering units (views), view
// geometry, status events, and the structured result envelope returned
// across the public API boundary.
package types
