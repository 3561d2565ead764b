package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds reset-request throttle tuning.
type Config struct {
	EnableEmailThrottle bool
	EnableIPThrottle    bool
	// MaxRequests is the number of requests allowed per window and key.
	MaxRequests int
	Window      time.Duration
	// Prefix namespaces keys; defaults to "grr".
	Prefix string
}

// Limiter enforces per-email and per-IP request budgets with Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "grr"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRequest counts one reset request for email and ip and reports
// ErrRateLimited once either budget for the current window is spent.
// Both counters are incremented even when the first one trips.
func (l *Limiter) CheckRequest(ctx context.Context, email, ip string) error {
	limited := false

	if l.config.EnableEmailThrottle && email != "" {
		count, err := l.incrementWithTTL(ctx, l.emailKey(email), l.config.Window)
		if err != nil {
			return err
		}
		limited = limited || count > int64(l.config.MaxRequests)
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err := l.incrementWithTTL(ctx, l.ipKey(ip), l.config.Window)
		if err != nil {
			return err
		}
		limited = limited || count > int64(l.config.MaxRequests)
	}

	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the email counter, and the IP counter when ip is set.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	keys := []string{l.emailKey(email)}
	if ip != "" {
		keys = append(keys, l.ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Emails are hashed so raw addresses never appear in key names.
func (l *Limiter) emailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return l.config.Prefix + ":e:" + hex.EncodeToString(sum[:16])
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + ":i:" + ip
}
