/*
Package surface abstracts the execution surface a rendering unit runs
on. The lifecycle manager treats the remote chat document as opaque: it
only needs to load it, reload it, nudge its connection, read its current
HTML for status probes, and account for its memory.

The web implementation keeps one isolated HTTP client per account
partition: a persistent cookie jar stored under the account's profile
directory and an outbound transport honoring the account's proxy rule.
Swapping in an embedded browser surface later only requires implementing
Surface and Factory.
*/
package surface
