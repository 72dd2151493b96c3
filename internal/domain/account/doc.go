// Package account provides the account configuration collaborator: a
// TOML-backed store of account records (name, document URL, proxy rule,
// translation hints) with create/update/delete notifications the
// lifecycle core reacts to.
package account
