package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/internal/api/middleware"
	"regulations/backend/internal/service"
	pkgerrors "regulations/backend/pkg/errors"
	"regulations/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Scheme    *SchemeHandler
	Attribute *AttributeHandler
	Scope     *ScopeHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Scheme:    NewSchemeHandler(svc.Scheme, logger),
		Attribute: NewAttributeHandler(svc.Attribute, logger),
		Scope:     NewScopeHandler(svc.Scope, logger),
	}
}

// handleServiceError 将业务错误变体映射为 HTTP 响应
//
//	ValidationError → 422（details 为全部校验信息）
//	TransitionError → 409（details 为全部违规课程代码）
//	ErrOptimisticLock → 409
//	NotFoundError → 404
//	PermissionError → 403
//	PreconditionError → 400
//	其余（持久化失败、提交超时）→ 500
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		ve *pkgerrors.ValidationError
		te *pkgerrors.TransitionError
		ne *pkgerrors.NotFoundError
		pm *pkgerrors.PermissionError
		pc *pkgerrors.PreconditionError
	)
	switch {
	case errors.As(err, &ve):
		response.ValidationFailed(c, ve.Messages)
	case errors.As(err, &te):
		response.Conflict(c, response.CodeTransitionDenied, te.Error(), te.Codes)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, response.CodeVersionConflict, err.Error(), nil)
	case errors.As(err, &ne):
		response.NotFound(c, response.CodeNotFound, ne.Error())
	case errors.As(err, &pm):
		response.Forbidden(c, response.CodeForbidden, pm.Error())
	case errors.As(err, &pc):
		response.BadRequest(c, response.CodePrecondition, pc.Error())
	default:
		_ = c.Error(err)
		logger.Error("请求处理失败", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodePersistenceFailed, err.Error())
	}
}

// bindError 请求绑定失败的统一响应
func bindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeBadRequest, "参数校验失败", err.Error())
}
