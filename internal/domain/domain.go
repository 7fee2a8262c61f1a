// Package domain defines the core entities and the interfaces between the
// HTTP layer and persistence.
package domain

import "context"

// AccessCredential is the durable OAuth 1.0a access token for a user.
// It is only meaningful when both halves are present; repositories return
// nil instead of a partial pair.
type AccessCredential struct {
	Username     string
	AccessKey    string
	AccessSecret string
}

// TokenRepository persists per-user OAuth access key/secret pairs.
// Usernames are compared in trimmed form.
type TokenRepository interface {
	// Save upserts the credential: exactly one stored row per username.
	Save(ctx context.Context, username, accessKey, accessSecret string) error
	// Get returns the credential, or (nil, nil) when absent or undecryptable.
	Get(ctx context.Context, username string) (*AccessCredential, error)
	// Delete removes the credential, reporting whether anything was deleted.
	Delete(ctx context.Context, username string) (bool, error)
	// Exists reports whether a usable credential is stored for the username.
	Exists(ctx context.Context, username string) (bool, error)
}

// UserRepository manages the users table.
type UserRepository interface {
	// EnsureExists inserts a user row if one does not already exist.
	EnsureExists(ctx context.Context, username string) error
}
