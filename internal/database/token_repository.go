package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
	"github.com/Mdwiki-TD/auth-repo/internal/domain"
	"github.com/Mdwiki-TD/auth-repo/internal/metrics"
)

// TokenRepo implements domain.TokenRepository backed by PostgreSQL.
//
// The primary store is oauth_tokens, whose username column is encrypted
// under the token key; a cold lookup decrypts every stored username and
// compares against the trimmed input. Hits are memoized in an in-process
// cache mapping plaintext username to row id. The cache is never
// authoritative: a miss simply triggers a fresh scan.
type TokenRepo struct {
	pool   *pgxpool.Pool
	crypto *crypto.Service

	mu  sync.Mutex
	ids map[string]int64
}

// NewTokenRepo creates a TokenRepo from the shared pool and crypto service.
func NewTokenRepo(pool *pgxpool.Pool, cryptoSvc *crypto.Service) *TokenRepo {
	return &TokenRepo{
		pool:   pool,
		crypto: cryptoSvc,
		ids:    make(map[string]int64),
	}
}

func (r *TokenRepo) cachedID(username string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[username]
	return id, ok
}

func (r *TokenRepo) rememberID(username string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[username] = id
}

func (r *TokenRepo) forgetID(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, username)
}

// lookupID resolves the internal row id for a username, scanning the table
// and decrypting each stored username on a cache miss. Returns (0, false)
// when no row matches.
func (r *TokenRepo) lookupID(ctx context.Context, username string) (int64, bool, error) {
	if id, ok := r.cachedID(username); ok {
		metrics.TokenCacheHits.Inc()
		return id, true, nil
	}
	metrics.TokenCacheMisses.Inc()

	start := time.Now()
	rows, err := r.pool.Query(ctx, `SELECT id, username FROM oauth_tokens`)
	observeQuery("token_scan", start, err)
	if err != nil {
		return 0, false, fmt.Errorf("failed to scan token store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var encrypted string
		if err := rows.Scan(&id, &encrypted); err != nil {
			return 0, false, fmt.Errorf("failed to scan token row: %w", err)
		}
		if r.crypto.Decrypt(encrypted, crypto.KeyToken) == username {
			r.rememberID(username, id)
			return id, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("failed to iterate token rows: %w", err)
	}

	return 0, false, nil
}

// Save upserts the credential for a username: an existing row is updated in
// place, otherwise a new row is inserted. Exactly one row per username.
func (r *TokenRepo) Save(ctx context.Context, username, accessKey, accessSecret string) error {
	username = strings.TrimSpace(username)

	encKey := r.crypto.Encrypt(accessKey, crypto.KeyToken)
	encSecret := r.crypto.Encrypt(accessSecret, crypto.KeyToken)

	id, found, err := r.lookupID(ctx, username)
	if err != nil {
		return err
	}

	if found {
		start := time.Now()
		_, err := r.pool.Exec(ctx, `
			UPDATE oauth_tokens
			SET access_key = $1, access_secret = $2, updated_at = NOW()
			WHERE id = $3
		`, encKey, encSecret, id)
		observeQuery("token_update", start, err)
		if err != nil {
			return fmt.Errorf("failed to update token: %w", err)
		}
		return nil
	}

	var newID int64
	start := time.Now()
	err = r.pool.QueryRow(ctx, `
		INSERT INTO oauth_tokens (username, access_key, access_secret)
		VALUES ($1, $2, $3)
		RETURNING id
	`, r.crypto.Encrypt(username, crypto.KeyToken), encKey, encSecret).Scan(&newID)
	observeQuery("token_insert", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	r.rememberID(username, newID)
	return nil
}

// Get returns the stored credential, preferring the unified store and
// falling back to the legacy table. A pair that is partial or fails to
// decrypt is treated as absent.
func (r *TokenRepo) Get(ctx context.Context, username string) (*domain.AccessCredential, error) {
	username = strings.TrimSpace(username)

	cred, err := r.getNew(ctx, username)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		return cred, nil
	}

	return r.getLegacy(ctx, username)
}

func (r *TokenRepo) getNew(ctx context.Context, username string) (*domain.AccessCredential, error) {
	id, found, err := r.lookupID(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var encKey, encSecret string
	start := time.Now()
	err = r.pool.QueryRow(ctx,
		`SELECT access_key, access_secret FROM oauth_tokens WHERE id = $1`, id,
	).Scan(&encKey, &encSecret)
	observeQuery("token_select", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		// Stale cache entry; drop it and report absent.
		r.forgetID(username)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	return r.decode(username, encKey, encSecret, crypto.KeyToken), nil
}

func (r *TokenRepo) getLegacy(ctx context.Context, username string) (*domain.AccessCredential, error) {
	var encKey, encSecret string
	start := time.Now()
	err := r.pool.QueryRow(ctx,
		`SELECT access_key, access_secret FROM access_keys WHERE user_name = $1`, username,
	).Scan(&encKey, &encSecret)
	observeQuery("legacy_select", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy token: %w", err)
	}

	return r.decode(username, encKey, encSecret, crypto.KeyCookie), nil
}

// decode decrypts a stored pair, returning nil unless both halves decrypt.
func (r *TokenRepo) decode(username, encKey, encSecret string, kind crypto.KeyKind) *domain.AccessCredential {
	accessKey := r.crypto.Decrypt(encKey, kind)
	accessSecret := r.crypto.Decrypt(encSecret, kind)
	if accessKey == "" || accessSecret == "" {
		return nil
	}

	return &domain.AccessCredential{
		Username:     username,
		AccessKey:    accessKey,
		AccessSecret: accessSecret,
	}
}

// Delete removes the credential from both tiers and reports whether
// anything was deleted.
func (r *TokenRepo) Delete(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)

	deleted := false

	id, found, err := r.lookupID(ctx, username)
	if err != nil {
		return false, err
	}
	if found {
		start := time.Now()
		tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_tokens WHERE id = $1`, id)
		observeQuery("token_delete", start, err)
		if err != nil {
			return false, fmt.Errorf("failed to delete token: %w", err)
		}
		r.forgetID(username)
		deleted = tag.RowsAffected() > 0
	}

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_keys WHERE user_name = $1`, username)
	observeQuery("legacy_delete", start, err)
	if err != nil {
		return deleted, fmt.Errorf("failed to delete legacy token: %w", err)
	}

	return deleted || tag.RowsAffected() > 0, nil
}

// Exists reports whether a usable credential is stored for the username.
func (r *TokenRepo) Exists(ctx context.Context, username string) (bool, error) {
	cred, err := r.Get(ctx, username)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}
