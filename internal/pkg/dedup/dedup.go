package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskmanager:once:"

// Guard 基于 Redis SETNX 的单次执行守卫。
//
// 用于确保同一个 key 在 TTL 窗口内只被处理一次，
// 例如同一任务的同一个截止时间只发送一封提醒邮件。
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGuard 创建一个单次执行守卫。
func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Guard{
		rdb: rdb,
		ttl: ttl,
	}
}

// First 判断 key 是否首次出现，首次返回 true 并占位。
func (g *Guard) First(ctx context.Context, key string) (bool, error) {
	if g == nil || g.rdb == nil || key == "" {
		return true, nil
	}
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("guard setnx: %w", err)
	}
	return ok, nil
}

// Release 删除 key 的占位，允许再次处理。
//
// 提醒发送失败时调用，下一轮扫描会重试该任务。
func (g *Guard) Release(ctx context.Context, key string) error {
	if g == nil || g.rdb == nil || key == "" {
		return nil
	}
	if err := g.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("guard del: %w", err)
	}
	return nil
}
