package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, 0, burst}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
local refill = (delta * rate) / 1000.0
tokens = math.min(burst, tokens + refill)

local allowed = tokens >= requested
local wait_ms = 0
if allowed then
  tokens = tokens - requested
else
  wait_ms = math.ceil((requested - tokens) * 1000.0 / rate)
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, wait_ms, tokens}
`

// Limiter 基于 Redis 的令牌桶限流器，按 key 独立计数。
//
// 与阻塞式限流不同，Allow 立即返回结果，由调用方决定拒绝或等待。
type Limiter struct {
	rdb       *redis.Client
	keyPrefix string
	rate      float64
	burst     float64
	logger    *slog.Logger
	script    *redis.Script
}

// NewRedisLimiter 创建一个 Redis 令牌桶限流器。
//
// 参数:
//   - rdb: Redis 客户端
//   - logger: 日志记录器（可为 nil）
//   - keyPrefix: Redis key 前缀（按调用方传入的 key 拼接）
//   - rate: 令牌生成速率（token/s）
//   - burst: 桶容量
func NewRedisLimiter(rdb *redis.Client, logger *slog.Logger, keyPrefix string, rate float64, burst float64) *Limiter {
	if keyPrefix == "" {
		keyPrefix = "taskmanager:ratelimit:"
	}
	return &Limiter{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		rate:      rate,
		burst:     burst,
		logger:    logger,
		script:    redis.NewScript(tokenBucketLua),
	}
}

// Allow 尝试为 key 消费一个令牌。
//
// 返回值:
//   - bool: 是否放行
//   - int64: 拒绝时距下一个令牌的等待毫秒数
//   - error: Redis 出错时返回（调用方一般选择放行，见中间件）
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return true, 0, nil
	}

	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{l.keyPrefix + key}, l.rate, l.burst, now, 1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("ratelimit invalid result")
	}

	allowed := toInt64(values[0]) == 1
	waitMs := toInt64(values[1])

	if !allowed && l.logger != nil {
		l.logger.Debug("rate limit exceeded",
			slog.String("key", key),
			slog.Int64("wait_ms", waitMs))
	}
	return allowed, waitMs, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if t == "" {
			return 0
		}
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
