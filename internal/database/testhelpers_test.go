package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/Mdwiki-TD/auth-repo/internal/crypto"
)

// 64 hex chars = 32 bytes; distinct keys so cross-key decryption is detectable.
const (
	testCookieKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testTokenKey  = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"
)

// newTestCrypto builds the crypto service used across repository tests.
func newTestCrypto(t *testing.T) *crypto.Service {
	t.Helper()

	svc, err := crypto.NewService(testCookieKey, testTokenKey)
	require.NoError(t, err)
	return svc
}

// insertLegacyCredential writes a row into the legacy access_keys table,
// encrypted under the cookie key as the old flow did.
func insertLegacyCredential(t *testing.T, pool *pgxpool.Pool, cryptoSvc *crypto.Service, username, accessKey, accessSecret string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO access_keys (user_name, access_key, access_secret)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_name) DO UPDATE SET
			access_key = EXCLUDED.access_key,
			access_secret = EXCLUDED.access_secret,
			created_at = NOW()
	`, username,
		cryptoSvc.Encrypt(accessKey, crypto.KeyCookie),
		cryptoSvc.Encrypt(accessSecret, crypto.KeyCookie))
	require.NoError(t, err)
}

// countTokenRows returns the number of rows in the unified store.
func countTokenRows(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var count int
	err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM oauth_tokens`).Scan(&count)
	require.NoError(t, err)
	return count
}
