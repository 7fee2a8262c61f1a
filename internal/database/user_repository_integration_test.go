package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_EnsureExists(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.EnsureExists(ctx, "alice"))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = 'alice'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserRepo_EnsureExists_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.EnsureExists(ctx, "alice"))
	require.NoError(t, repo.EnsureExists(ctx, "alice"))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserRepo_EnsureExists_TrimsUsername(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewUserRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.EnsureExists(ctx, "  alice  "))
	require.NoError(t, repo.EnsureExists(ctx, "alice"))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
