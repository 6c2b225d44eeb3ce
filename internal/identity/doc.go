// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package identity provides the account layer for request simulation:
// password-backed accounts over the hierarchy store and the personal
// access tokens the API layer authenticates with.
//
// # Accounts
//
// Register creates the forge user (with its personal namespace) and an
// account holding the argon2id hash of the password. Authenticate
// verifies credentials with the same invalid-credentials answer for
// unknown usernames and wrong passwords.
//
// # Tokens
//
// IssueToken mints a personal access token; only its SHA-256 hash is
// retained. UserForToken resolves the acting user for a presented
// token. Tokens live for the process lifetime; RevokeToken is the only
// way to retire one.
//
// Like the hierarchy store, the registry does no locking. Callers
// serialize access.
package identity
