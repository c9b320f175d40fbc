package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var searchRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// SearchRateLimiter bounds how often one user may run recipient searches.
// Implementations return the count consumed in the current window and how
// long until the window resets.
type SearchRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// SetSearchRateLimiter enables recipient-search rate limiting. A nil
// limiter or non-positive limit disables it.
func (s *Service) SetSearchRateLimiter(limiter SearchRateLimiter, perMinute int) {
	s.searchLimiter = limiter
	s.searchLimitPerMinute = perMinute
}

// ConsumeSearchRateLimit charges one recipient search to the user's quota.
// It reports whether the search should be refused and, if so, how many
// seconds to wait. Limiter failures never block a search.
func (s *Service) ConsumeSearchRateLimit(ctx context.Context, userID uuid.UUID) (limited bool, retryAfterSeconds int) {
	if s.searchLimiter == nil || s.searchLimitPerMinute <= 0 {
		return false, 0
	}
	count, retryAfter, err := s.searchLimiter.ConsumeRateLimit(ctx, "recipient_search", userID.String(), s.searchLimitPerMinute, time.Minute)
	if err != nil {
		log.Printf("level=warn component=rate_limit msg=\"search rate limit check failed; allowing request\" user_id=%s err=%v", userID, err)
		return false, 0
	}
	if count > s.searchLimitPerMinute {
		return true, retryAfter
	}
	return false, 0
}

// RedisSearchRateLimiter implements distributed rate limiting using Redis.
type RedisSearchRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSearchRateLimiter(client redis.UniversalClient, prefix string) *RedisSearchRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "zimpay:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisSearchRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

func (r *RedisSearchRateLimiter) ConsumeRateLimit(
	ctx context.Context,
	scope string,
	subject string,
	limit int,
	window time.Duration,
) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.TrimSpace(subject)
	if normalizedScope == "" || normalizedSubject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedScope, normalizedSubject)
	rawResult, err := searchRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return int(currentCount), retryAfter, nil
}
