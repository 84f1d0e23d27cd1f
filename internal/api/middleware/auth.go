package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/internal/workflow"
	"regulations/backend/pkg/jwt"
	"regulations/backend/pkg/redis"
	"regulations/backend/pkg/response"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，注入用户 ID 与角色
// rdb 为 nil 时跳过吊销检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeUnauthorized, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 故障时降级放行
				logger.Warn("检查 Token 吊销状态失败", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, response.CodeUnauthorized, "Token 已被吊销")
				c.Abort()
				return
			}
		}

		// 只保留词表内的角色
		roles := make([]string, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			if workflow.IsKnownRole(r) {
				roles = append(roles, r)
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("roles", roles)
		c.Set("token_jti", claims.ID)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 当前用户具有指定角色之一即放行；细粒度权限由 Service 层的权限表判定
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := workflow.NewRoleSet(allowedRoles...)
	return func(c *gin.Context) {
		v, exists := c.Get("roles")
		if !exists {
			response.Unauthorized(c, response.CodeUnauthorized, "未认证")
			c.Abort()
			return
		}

		roles, _ := v.([]string)
		if workflow.NewRoleSet(roles...).Intersects(allowed) {
			c.Next()
			return
		}

		response.Forbidden(c, response.CodeForbidden, "无权限访问")
		c.Abort()
	}
}
