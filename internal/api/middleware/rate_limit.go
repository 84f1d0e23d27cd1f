package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/pkg/redis"
	"regulations/backend/pkg/response"
)

// RateLimit 基于 Redis 固定窗口计数的速率限制中间件
// 已认证请求按用户计数，否则按客户端 IP
// rdb 为 nil 或 Redis 出错时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if uid := c.GetString("user_id"); uid != "" {
			subject = "user:" + uid
		}
		key := fmt.Sprintf("rate_limit:%s:%s:%s", subject, c.Request.Method, c.FullPath())

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
