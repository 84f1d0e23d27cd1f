package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码
const (
	CodeBadRequest      = 10001 // 参数校验失败
	CodeUnauthorized    = 10002 // 未认证
	CodeForbidden       = 10003 // 无权限
	CodeTooManyRequests = 10004 // 请求过于频繁
	CodeBodyTooLarge    = 10005 // 请求体过大

	CodeValidationFailed  = 20001 // 业务规则校验未通过
	CodeTransitionDenied  = 20002 // 状态迁移被拒绝
	CodeNotFound          = 20003 // 资源不存在
	CodePrecondition      = 20004 // 前置条件不满足
	CodeVersionConflict   = 20005 // 乐观锁冲突
	CodeInternal          = 50000 // 服务器内部错误
	CodePersistenceFailed = 50001 // 持久化失败
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithDetails 带详情的错误响应（details 可为字符串或列表）
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message string, details interface{}) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// Conflict 409
func Conflict(c *gin.Context, code int, message string, details interface{}) {
	ErrorWithDetails(c, http.StatusConflict, code, message, details)
}

// ValidationFailed 422，details 为全部校验信息
func ValidationFailed(c *gin.Context, messages []string) {
	ErrorWithDetails(c, http.StatusUnprocessableEntity, CodeValidationFailed, "validation failed", messages)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}
