package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"regulations/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 声明的 Content-Length 超限时直接拒绝；未声明长度时由 MaxBytesReader 在读取时截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}

// IsBodyTooLarge 判断绑定错误是否由请求体超限引起
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
