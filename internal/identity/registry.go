// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package identity

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/forge"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// dummyPasswordHash is used when a username doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Account pairs a forge user with their password hash.
type Account struct {
	UserID       ulid.ULID
	PasswordHash string
	CreatedAt    time.Time
}

// Registry manages accounts and personal access tokens over the
// hierarchy store. It does no locking; callers serialize access the
// same way they do for the store itself.
type Registry struct {
	store    *forge.Store
	hasher   PasswordHasher
	accounts map[ulid.ULID]*Account
	tokens   map[string]*Token // keyed by token hash
}

// NewRegistry creates a registry over the store.
func NewRegistry(store *forge.Store, hasher PasswordHasher) *Registry {
	return &Registry{
		store:    store,
		hasher:   hasher,
		accounts: make(map[ulid.ULID]*Account),
		tokens:   make(map[string]*Token),
	}
}

// Register creates a forge user (with their personal namespace) and an
// account holding the password hash. The password is hashed before any
// store mutation, so a rejected password leaves no trace.
func (r *Registry) Register(username, name, password string, admin bool) (*forge.User, error) {
	if len(password) < MinPasswordLength {
		return nil, oops.Code("IDENTITY_WEAK_PASSWORD").
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, oops.Wrapf(err, "hash password for %q", username)
	}
	user, err := r.store.AddUser(username, name, admin)
	if err != nil {
		return nil, oops.Wrapf(err, "register %q", username)
	}
	r.accounts[user.ID] = &Account{
		UserID:       user.ID,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	return user, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords produce the same IDENTITY_INVALID_CREDENTIALS answer,
// and a dummy verification runs for unknown usernames to keep response
// time consistent.
func (r *Registry) Authenticate(username, password string) (*forge.User, error) {
	user, found := r.store.UserByUsername(username)

	targetHash := dummyPasswordHash
	if found {
		account, ok := r.accounts[user.ID]
		if !ok {
			// User exists in the store but was created outside the
			// registry (e.g. a fixture without credentials).
			found = false
		} else {
			targetHash = account.PasswordHash
		}
	}

	valid, err := r.hasher.Verify(password, targetHash)
	if err != nil && found {
		return nil, oops.Code("IDENTITY_AUTH_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !found || !valid {
		return nil, invalidCredentials()
	}
	return user, nil
}

// SetPassword replaces the password for an existing account.
func (r *Registry) SetPassword(userID ulid.ULID, password string) error {
	account, ok := r.accounts[userID]
	if !ok {
		return accountNotFound(userID)
	}
	if len(password) < MinPasswordLength {
		return oops.Code("IDENTITY_WEAK_PASSWORD").
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return oops.Wrapf(err, "hash password for user %s", userID)
	}
	account.PasswordHash = hash
	return nil
}

// IssueToken mints a personal access token for the user and returns the
// plaintext exactly once.
func (r *Registry) IssueToken(userID ulid.ULID, name string) (string, *Token, error) {
	if _, ok := r.store.User(userID); !ok {
		return "", nil, oops.Code("FORGE_USER_NOT_FOUND").
			With("user_id", userID.String()).
			Errorf("user %s not found", userID)
	}
	plaintext, hash, err := GenerateAccessToken()
	if err != nil {
		return "", nil, err
	}
	token := &Token{
		ID:        forge.NewID(),
		UserID:    userID,
		Name:      name,
		TokenHash: hash,
		CreatedAt: time.Now(),
	}
	r.tokens[hash] = token
	return plaintext, token, nil
}

// UserForToken resolves the acting user for a presented token and
// stamps the token's last use.
func (r *Registry) UserForToken(plaintext string) (*forge.User, error) {
	if plaintext == "" {
		return nil, oops.Code("IDENTITY_TOKEN_EMPTY").Errorf("access token cannot be empty")
	}
	token, ok := r.tokens[HashAccessToken(plaintext)]
	if !ok {
		return nil, oops.Code("IDENTITY_TOKEN_UNKNOWN").Errorf("unknown access token")
	}
	user, ok := r.store.User(token.UserID)
	if !ok {
		// The user was removed after the token was issued.
		return nil, oops.Code("IDENTITY_TOKEN_UNKNOWN").Errorf("unknown access token")
	}
	token.LastUsedAt = time.Now()
	return user, nil
}

// RevokeToken retires a token by ID.
func (r *Registry) RevokeToken(tokenID ulid.ULID) error {
	for hash, token := range r.tokens {
		if token.ID == tokenID {
			delete(r.tokens, hash)
			return nil
		}
	}
	return oops.Code("IDENTITY_TOKEN_NOT_FOUND").
		With("token_id", tokenID.String()).
		Errorf("token %s not found", tokenID)
}

// Tokens returns the user's tokens ordered by ID.
func (r *Registry) Tokens(userID ulid.ULID) []*Token {
	var out []*Token
	for _, token := range r.tokens {
		if token.UserID == userID {
			out = append(out, token)
		}
	}
	slices.SortFunc(out, func(a, b *Token) int { return a.ID.Compare(b.ID) })
	return out
}

func invalidCredentials() error {
	return oops.Code("IDENTITY_INVALID_CREDENTIALS").Errorf("invalid username or password")
}

func accountNotFound(userID ulid.ULID) error {
	return oops.Code("IDENTITY_ACCOUNT_NOT_FOUND").
		With("user_id", userID.String()).
		Errorf("no account for user %s", userID)
}
