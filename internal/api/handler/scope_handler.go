package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/service"
	"regulations/backend/pkg/response"
)

// ScopeHandler 作用域（规程 × 专业）HTTP 处理器
type ScopeHandler struct {
	scopeSvc service.ScopeService
	logger   *zap.Logger
}

// NewScopeHandler 创建 ScopeHandler
func NewScopeHandler(scopeSvc service.ScopeService, logger *zap.Logger) *ScopeHandler {
	return &ScopeHandler{scopeSvc: scopeSvc, logger: logger}
}

// GetScope 获取作用域信息
// GET /api/v1/scopes?regulation_id=&programme_id=
func (h *ScopeHandler) GetScope(c *gin.Context) {
	regulationID := c.Query("regulation_id")
	programmeID := c.Query("programme_id")
	if regulationID == "" || programmeID == "" {
		response.BadRequest(c, response.CodeBadRequest, "regulation_id 与 programme_id 不能为空")
		return
	}

	scope, err := h.scopeSvc.Get(c.Request.Context(), regulationID, programmeID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, scope)
}

// FreezeSemesters 冻结学期
// PUT /api/v1/scopes/freeze
func (h *ScopeHandler) FreezeSemesters(c *gin.Context) {
	h.changeFrozen(c, h.scopeSvc.FreezeSemesters)
}

// UnfreezeSemesters 解冻学期
// PUT /api/v1/scopes/unfreeze
func (h *ScopeHandler) UnfreezeSemesters(c *gin.Context) {
	h.changeFrozen(c, h.scopeSvc.UnfreezeSemesters)
}

type frozenOp func(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest) (*dto.ScopeResponse, error)

func (h *ScopeHandler) changeFrozen(c *gin.Context, op frozenOp) {
	var req dto.FreezeSemestersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	scope, err := op(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.OK(c, scope)
}
