package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applogger "regulations/backend/pkg/logger"
)

// Logger 请求日志中间件
// 按路由模板记录，附带 request_id、调用者与链路追踪 ID
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := append([]zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("client_ip", c.ClientIP()),
		}, applogger.TraceFields(c.Request.Context())...)
		if uid := c.GetString("user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		switch {
		case status >= 500:
			logger.Error("请求处理失败", fields...)
		case status == 409 || status == 422:
			// 业务拒绝（校验、迁移、版本冲突）
			logger.Info("请求被业务规则拒绝", fields...)
		case status >= 400:
			logger.Warn("客户端错误", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
