package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a UserRepo from the shared pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// EnsureExists inserts a user row if one does not already exist. Rows are
// upsert-only and never updated afterwards.
func (r *UserRepo) EnsureExists(ctx context.Context, username string) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (username)
		VALUES ($1)
		ON CONFLICT (username) DO NOTHING
	`, strings.TrimSpace(username))
	observeQuery("user_ensure", start, err)
	if err != nil {
		return fmt.Errorf("failed to ensure user exists: %w", err)
	}
	return nil
}
