package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/service"
	"regulations/backend/pkg/response"
)

// SchemeHandler 教学计划课程 HTTP 处理器
type SchemeHandler struct {
	schemeSvc service.SchemeService
	logger    *zap.Logger
}

// NewSchemeHandler 创建 SchemeHandler
func NewSchemeHandler(schemeSvc service.SchemeService, logger *zap.Logger) *SchemeHandler {
	return &SchemeHandler{schemeSvc: schemeSvc, logger: logger}
}

// ListItems 分页查询作用域内课程
// GET /api/v1/scheme-items?regulation_id=&programme_id=
func (h *SchemeHandler) ListItems(c *gin.Context) {
	var req dto.SchemeItemListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	items, total, err := h.schemeSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// GetItem 获取课程详情
// GET /api/v1/scheme-items/:id
func (h *SchemeHandler) GetItem(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.schemeSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, item)
}

// CreateItem 新增课程
// POST /api/v1/scheme-items
func (h *SchemeHandler) CreateItem(c *gin.Context) {
	var req dto.SchemeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.schemeSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.Created(c, item)
}

// UpdateItem 更新课程
// PUT /api/v1/scheme-items/:id
func (h *SchemeHandler) UpdateItem(c *gin.Context) {
	var req dto.SchemeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.schemeSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, item)
}

// DeleteItem 删除课程
// DELETE /api/v1/scheme-items/:id
func (h *SchemeHandler) DeleteItem(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	msg, err := h.schemeSvc.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, gin.H{"message": msg})
}

// ChangeStatus 批量变更课程状态
// POST /api/v1/scheme-items/status
func (h *SchemeHandler) ChangeStatus(c *gin.Context) {
	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.schemeSvc.ChangeStatus(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, result)
}

// ChangeMappingStatus 批量变更 CO-PO 映射状态
// POST /api/v1/scheme-items/mapping-status
func (h *SchemeHandler) ChangeMappingStatus(c *gin.Context) {
	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.schemeSvc.ChangeMappingStatus(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, result)
}

// UpdateOutcomes 更新课程目标
// PUT /api/v1/scheme-items/:id/outcomes
func (h *SchemeHandler) UpdateOutcomes(c *gin.Context) {
	var req dto.UpdateCourseOutcomesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.schemeSvc.UpdateCourseOutcomes(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, item)
}

// UpdateMapping 更新 CO-PO 映射
// PUT /api/v1/scheme-items/:id/mapping
func (h *SchemeHandler) UpdateMapping(c *gin.Context) {
	var req dto.UpdateOutcomeMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	item, err := h.schemeSvc.UpdateOutcomeMapping(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, item)
}
