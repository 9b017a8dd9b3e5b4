// Package credentials persists the console's bearer credential pair.
//
// # Overview
//
// The backend issues an access token (short-lived) and a refresh token
// (long-lived) on login. Both are stored through the Store port under the
// fixed keys "accessToken" and "refreshToken" and are always written and
// cleared together, so a reader observes either the old pair or the new one,
// never a mix.
//
// # Backends
//
//   - MemoryStore: process-local, used by tests and the "memory" backend
//   - FileStore: TOML file, optionally sealed with NaCl secretbox
//   - SQLiteStore: single-table key/value store (modernc.org/sqlite)
//   - KeyringStore: OS keychain via go-keyring
//
// Open selects a backend from configuration:
//
//	store, err := credentials.Open(credentials.Options{
//	    Backend: "file",
//	    Path:    "~/.config/predictera/credentials.toml",
//	})
//
// # Inspecting tokens
//
// Inspect decodes the claims of an access token without verifying its
// signature. The console never trusts these claims for authorization; they
// are only shown to the user (subject, expiry).
package credentials
