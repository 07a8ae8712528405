// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLoginAttempt checks if a login attempt from this IP for this wallet is allowed
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, wallet string) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:login:%s:%s", ip, wallet)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		r.client.Expire(ctx, key, 15*time.Minute)
	}

	maxAttempts := int64(10)
	remaining := maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxAttempts, remaining, nil
}

// ResetLoginAttempts resets the login attempt counter after a successful login
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, wallet string) error {
	key := fmt.Sprintf("ratelimit:login:%s:%s", ip, wallet)
	return r.client.Del(ctx, key).Err()
}

// CheckAPIRateLimit enforces a fixed-window request limit per user and endpoint
func (r *RateLimiter) CheckAPIRateLimit(ctx context.Context, userID, endpoint string, maxRequests int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:api:%s:%s", userID, endpoint)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment api rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= maxRequests, nil
}
