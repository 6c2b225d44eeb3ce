// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package fixture loads YAML world descriptions into a populated
// hierarchy store, so a whole forge (users, groups, projects, grants,
// protected branches) can be declared in one file and served or
// queried without any setup code.
//
// # Documents
//
// A fixture document carries a format version plus three ordered
// lists: users, groups, and projects. Groups reference their parent
// by full slug path and must appear after it; grants reference users
// by username and groups by full path. ParseDocument validates a
// document against the generated JSON Schema before decoding it, so
// shape errors surface with schema locations rather than as zero
// values deep in the loader.
//
// # Versioning
//
// The version field is strict semver and must satisfy the supported
// constraint (currently ^1). Documents written for a future major
// format are rejected up front instead of being half-loaded.
//
// # Loading
//
// Load builds a forge.Store and an identity.Registry from a parsed
// document in declaration order. Users with a password become
// registry accounts; the rest are plain store users.
package fixture
