// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Access token configuration.
const (
	accessTokenBytes  = 20
	accessTokenPrefix = "fspat-"
)

// Token is a personal access token record. The plaintext is handed out
// exactly once at issue time; only the SHA-256 hash is retained.
type Token struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	Name       string
	TokenHash  string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// GenerateAccessToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to
// the client; the hash is what the registry stores.
func GenerateAccessToken() (token, hash string, err error) {
	raw := make([]byte, accessTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", oops.Code("IDENTITY_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", accessTokenBytes).
			Wrap(err)
	}

	token = accessTokenPrefix + hex.EncodeToString(raw)
	hash = HashAccessToken(token)

	return token, hash, nil
}

// HashAccessToken computes the SHA-256 hash of an access token.
func HashAccessToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
