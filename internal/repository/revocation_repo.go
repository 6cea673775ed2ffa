package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RevocationRepository is the durable token blacklist. A row's existence
// means the token must be rejected regardless of signature validity.
type RevocationRepository struct {
	pool *pgxpool.Pool
}

func NewRevocationRepository(pool *pgxpool.Pool) *RevocationRepository {
	return &RevocationRepository{pool: pool}
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token = $1)`,
		tokenString).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token revoked: %w", err)
	}
	return exists, nil
}

// Revoke is idempotent: revoking the same token twice is a no-op.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenString string, issuedAt time.Time, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO revoked_tokens (token, issued_at, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO NOTHING`,
		tokenString, issuedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// PurgeExpired reclaims rows whose natural signature expiry has passed;
// the signatures are already unverifiable, this is storage hygiene.
func (r *RevocationRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
