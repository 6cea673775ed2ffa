package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "revoked:"

// RevocationStore keeps the token blacklist in Redis. Keys carry the
// token's remaining lifetime as their TTL, so expired entries vanish on
// their own and PurgeExpired has nothing left to do.
type RevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client, now: time.Now}
}

func (s *RevocationStore) WithClock(now func() time.Time) *RevocationStore {
	s.now = now
	return s
}

func key(tokenString string) string {
	return revocationKeyPrefix + tokenString
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	_, err := s.client.Get(ctx, key(tokenString)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revoked: %w", err)
	}
	return true, nil
}

// Revoke is idempotent; re-setting an existing key just refreshes the
// same value. A token already past its expiry is not stored at all.
func (s *RevocationStore) Revoke(ctx context.Context, tokenString string, issuedAt time.Time, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, key(tokenString), issuedAt.UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// PurgeExpired exists to satisfy the store contract; Redis key TTLs
// already reclaim expired entries.
func (s *RevocationStore) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
