package middleware

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationChecker checks the Redis revocation list populated at
// logout
type RedisRevocationChecker struct {
	client *redis.Client
}

// NewRedisRevocationChecker creates a revocation checker backed by Redis
func NewRedisRevocationChecker(client *redis.Client) *RedisRevocationChecker {
	return &RedisRevocationChecker{client: client}
}

// IsTokenRevoked reports whether the token id has been revoked
func (r *RedisRevocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}
