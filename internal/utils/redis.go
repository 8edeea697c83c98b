// 包 utils：PostgreSQL 与 Redis 连接工具
package utils

import (
	"hideseek/internal/config"
	"hideseek/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：按配置打开 Redis 客户端
// 约束：未配置 REDIS_HOST 时返回 nil，调用方据此跳过共享缓存
func OpenRedis(r config.Redis) *redis.Client {
	if !r.Enabled() {
		return nil
	}
	logger.L().Debug("redis_open", "addr", r.Addr(), "db", r.DB)
	return redis.NewClient(&redis.Options{Addr: r.Addr(), Password: r.Pass, DB: r.DB})
}
