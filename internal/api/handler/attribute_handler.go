package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/service"
	"regulations/backend/pkg/response"
)

// AttributeHandler 参考属性 HTTP 处理器
type AttributeHandler struct {
	attributeSvc service.AttributeService
	logger       *zap.Logger
}

// NewAttributeHandler 创建 AttributeHandler
func NewAttributeHandler(attributeSvc service.AttributeService, logger *zap.Logger) *AttributeHandler {
	return &AttributeHandler{attributeSvc: attributeSvc, logger: logger}
}

// ListAttributes 按类别列出属性
// GET /api/v1/attributes?kind=
func (h *AttributeHandler) ListAttributes(c *gin.Context) {
	list, err := h.attributeSvc.List(c.Request.Context(), c.Query("kind"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// RenameAttribute 属性改名（级联更新引用行）
// PUT /api/v1/attributes/:id
func (h *AttributeHandler) RenameAttribute(c *gin.Context) {
	var req dto.RenameAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	attr, err := h.attributeSvc.Rename(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, attr)
}
