package handler

import (
	"github.com/gin-gonic/gin"

	"regulations/backend/internal/dto"
	"regulations/backend/pkg/response"
)

// MustGetActor 从 Gin 上下文中提取调用者身份。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (dto.Actor, bool) {
	uid := c.GetString("user_id")
	if uid == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return dto.Actor{}, false
	}
	roles, _ := c.Get("roles")
	list, _ := roles.([]string)
	return dto.Actor{UserID: uid, Roles: list}, true
}
