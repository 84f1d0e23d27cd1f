package dto

import "regulations/backend/internal/workflow"

// Actor 调用者身份与角色（由认证中间件从 Token 解析）
type Actor struct {
	UserID string
	Roles  []string
}

// RoleSet 角色集合
func (a Actor) RoleSet() workflow.RoleSet {
	return workflow.NewRoleSet(a.Roles...)
}

// ── 教学计划课程 DTO ──

// SchemeItemRequest 创建/更新课程请求
// 开课部门按 (name, category) 定位
type SchemeItemRequest struct {
	RegulationID        string   `json:"regulation_id"        binding:"required"`
	ProgrammeID         string   `json:"programme_id"         binding:"required"`
	Semester            *int     `json:"semester"`
	Code                string   `json:"code"                 binding:"required,max=30"`
	Name                string   `json:"name"                 binding:"required,max=200"`
	Category            string   `json:"category"             binding:"required"`
	Type                *string  `json:"type"`
	CreditPatternID     *string  `json:"credit_pattern_id"`
	EvaluationPatternID *string  `json:"evaluation_pattern_id"`
	DepartmentName      *string  `json:"department_name"`
	DepartmentCategory  *string  `json:"department_category"`
	Prerequisites       []string `json:"prerequisites"`
	IsVertical          bool     `json:"is_vertical"`
	VerticalName        *string  `json:"vertical_name"`
	IsPlaceholder       bool     `json:"is_placeholder"`
	IsOneYear           bool     `json:"is_one_year"`
	// Version 更新时携带则做乐观锁校验
	Version int `json:"version"`
}

// SchemeItemListRequest 课程列表查询参数
type SchemeItemListRequest struct {
	PaginationRequest
	RegulationID  string `form:"regulation_id"  binding:"required"`
	ProgrammeID   string `form:"programme_id"   binding:"required"`
	Semester      *int   `form:"semester"       binding:"omitempty,min=1"`
	Status        string `form:"status"`
	MappingStatus string `form:"mapping_status"`
}

// StatusChangeRequest 批量状态变更请求（课程状态与映射状态共用）
type StatusChangeRequest struct {
	RegulationID string   `json:"regulation_id" binding:"required"`
	ProgrammeID  string   `json:"programme_id"  binding:"required"`
	ItemIDs      []string `json:"item_ids"      binding:"required,min=1,dive,required"`
	To           string   `json:"to"            binding:"required"`
	Reason       string   `json:"reason"        binding:"omitempty,max=500"`
}

// CourseOutcomeInput 单个课程目标
type CourseOutcomeInput struct {
	Description string   `json:"description"`
	Taxonomy    []string `json:"taxonomy"`
	Weight      float64  `json:"weight"`
}

// UpdateCourseOutcomesRequest 更新课程目标请求
type UpdateCourseOutcomesRequest struct {
	Outcomes map[string]CourseOutcomeInput `json:"outcomes" binding:"required"`
	Version  int                           `json:"version"  binding:"required,min=1"`
}

// UpdateOutcomeMappingRequest 更新 CO-PO 映射请求（PO 键 → CO 键 → 强度）
type UpdateOutcomeMappingRequest struct {
	Mapping map[string]map[string]string `json:"mapping" binding:"required"`
	Version int                          `json:"version" binding:"required,min=1"`
}

// SchemeItemResponse 课程响应
type SchemeItemResponse struct {
	ID                  string                        `json:"id"`
	RegulationID        string                        `json:"regulation_id"`
	ProgrammeID         string                        `json:"programme_id"`
	Semester            *int                          `json:"semester"`
	Code                string                        `json:"code"`
	Name                string                        `json:"name"`
	Category            string                        `json:"category"`
	Type                *string                       `json:"type,omitempty"`
	CreditPatternID     *string                       `json:"credit_pattern_id,omitempty"`
	EvaluationPatternID *string                       `json:"evaluation_pattern_id,omitempty"`
	OfferingDepartment  *DepartmentResponse           `json:"offering_department,omitempty"`
	Prerequisites       []string                      `json:"prerequisites"`
	IsVertical          bool                          `json:"is_vertical"`
	VerticalName        *string                       `json:"vertical_name,omitempty"`
	IsPlaceholder       bool                          `json:"is_placeholder"`
	IsOneYear           bool                          `json:"is_one_year"`
	Status              string                        `json:"status"`
	StatusReason        string                        `json:"status_reason,omitempty"`
	MappingStatus       string                        `json:"mapping_status"`
	MappingReason       string                        `json:"mapping_reason,omitempty"`
	CourseOutcomes      map[string]CourseOutcomeInput `json:"course_outcomes"`
	OutcomeMapping      map[string]map[string]string  `json:"outcome_mapping"`
	Version             int                           `json:"version"`
	UpdatedAt           string                        `json:"updated_at"`
	// 以下两项仅在单条查询时按调用者角色填充
	AllowedTransitions        []string `json:"allowed_transitions,omitempty"`
	AllowedMappingTransitions []string `json:"allowed_mapping_transitions,omitempty"`
}

// StatusChangeResponse 批量状态变更结果
type StatusChangeResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

// ── 作用域与属性 DTO ──

// FreezeSemestersRequest 冻结/解冻学期请求
type FreezeSemestersRequest struct {
	RegulationID string `json:"regulation_id" binding:"required"`
	ProgrammeID  string `json:"programme_id"  binding:"required"`
	Semesters    []int  `json:"semesters"     binding:"required,min=1,dive,min=1"`
}

// ScopeResponse 作用域信息
type ScopeResponse struct {
	RegulationID      string   `json:"regulation_id"`
	ProgrammeID       string   `json:"programme_id"`
	Verticals         []string `json:"verticals"`
	ProgrammeOutcomes []string `json:"programme_outcomes"`
	FrozenSemesters   []int    `json:"frozen_semesters"`
}

// RenameAttributeRequest 属性改名请求
type RenameAttributeRequest struct {
	Value   string `json:"value"   binding:"required,max=100"`
	Version int    `json:"version" binding:"required,min=1"`
}

// AttributeResponse 属性响应
type AttributeResponse struct {
	ID       string           `json:"id"`
	Kind     string           `json:"kind"`
	Value    string           `json:"value"`
	Version  int              `json:"version"`
	Cascaded map[string]int64 `json:"cascaded,omitempty"` // 表名 → 级联更新行数
}
