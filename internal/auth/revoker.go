package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records logged-out tokens so they stop being accepted before they
// expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "auth:revoked:"

// RedisRevoker is a Redis-backed token denylist. Entries carry a TTL equal to
// the remaining token lifetime so the set cleans itself up.
type RedisRevoker struct {
	rdb *redis.Client
}

// NewRedisRevoker creates a Redis-backed revoker.
func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

// Revoke denylists a token ID until its natural expiry.
func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired
	}
	return r.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token ID has been denylisted.
func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
