// Package ratelimit gates the LLM-backed evaluation endpoints with a
// per-caller fixed-window counter backed by Redis. The governor fails
// open: if the counter store is unreachable the request is allowed,
// trading strictness for availability.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/okr-evaluator/internal/config"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Governor decides whether a caller identity may proceed.
type Governor interface {
	Allow(ctx context.Context, identity string) Decision
}

// fixedWindowScript increments the caller's counter for the current
// window atomically, arming the window expiry on first increment.
// Returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl == -1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisGovernor implements Governor with a Redis fixed-window counter.
type RedisGovernor struct {
	client *redis.Client
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedisGovernor creates a governor from config. The redis URL must be
// non-empty; callers use NewNoop when rate limiting is disabled.
func NewRedisGovernor(cfg config.RateLimitConfig) (*RedisGovernor, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, eris.Wrap(err, "ratelimit: parse redis url")
	}
	return &RedisGovernor{
		client: redis.NewClient(opts),
		window: time.Duration(cfg.WindowSeconds) * time.Second,
		max:    cfg.MaxRequests,
		now:    time.Now,
	}, nil
}

// Allow increments the caller's counter for the current window and
// denies once the configured maximum is exceeded. Store errors allow
// the request.
func (g *RedisGovernor) Allow(ctx context.Context, identity string) Decision {
	key := g.windowKey(identity)

	res, err := fixedWindowScript.Run(ctx, g.client, []string{key}, g.window.Milliseconds()).Result()
	if err != nil {
		zap.L().Warn("rate limit store unreachable, failing open",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return Decision{Allowed: true, Remaining: -1}
	}

	count, ttl, ok := parseScriptReply(res)
	if !ok {
		zap.L().Warn("unexpected rate limit reply, failing open", zap.Any("reply", res))
		return Decision{Allowed: true, Remaining: -1}
	}

	return g.decide(count, ttl)
}

// decide maps a post-increment count and window TTL to a Decision.
func (g *RedisGovernor) decide(count, ttlMillis int64) Decision {
	if count > int64(g.max) {
		retry := time.Duration(ttlMillis) * time.Millisecond
		if retry <= 0 {
			retry = g.window
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}
	return Decision{Allowed: true, Remaining: g.max - int(count)}
}

// Close releases the underlying Redis connection pool.
func (g *RedisGovernor) Close() error {
	return g.client.Close()
}

// windowKey buckets the identity into the current fixed window.
func (g *RedisGovernor) windowKey(identity string) string {
	bucket := g.now().Unix() / int64(g.window.Seconds())
	return fmt.Sprintf("rl:%s:%d", identity, bucket)
}

func parseScriptReply(res any) (count, ttl int64, ok bool) {
	reply, ok := res.([]any)
	if !ok || len(reply) < 2 {
		return 0, 0, false
	}
	count, ok = reply[0].(int64)
	if !ok {
		return 0, 0, false
	}
	ttl, ok = reply[1].(int64)
	return count, ttl, ok
}

// Noop allows every request; used when no counter store is configured.
type Noop struct{}

// NewNoop returns a pass-through governor.
func NewNoop() Noop { return Noop{} }

func (Noop) Allow(context.Context, string) Decision {
	return Decision{Allowed: true, Remaining: -1}
}
