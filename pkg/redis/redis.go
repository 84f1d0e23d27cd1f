package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"regulations/backend/config"
)

// Client Redis 客户端封装
// 用于事件发布、Token 吊销名单与接口限流
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromUniversal 包装已有连接（测试注入）
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 事件发布 ──

// Publish 向频道发布消息，返回收到消息的订阅者数量
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return c.rdb.Publish(ctx, channel, payload).Result()
}

// ── Token 吊销名单 ──

// 吊销名单由外部认证系统写入，这里只读
const revokedPrefix = "token:revoked:"

// IsRevoked 检查 JWT ID 是否已被吊销
func (c *Client) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数，窗口内第 limit+1 次请求起返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
