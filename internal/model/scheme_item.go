package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseOutcome 课程目标（CO）
type CourseOutcome struct {
	Description string   `json:"description"`
	Taxonomy    []string `json:"taxonomy"`
	Weight      float64  `json:"weight"`
}

// CourseOutcomes CO 键 → 课程目标
type CourseOutcomes map[string]CourseOutcome

// OutcomeMapping PO 键 → CO 键 → 关联强度（LOW | MEDIUM | STRONG）
type OutcomeMapping map[string]map[string]string

// SchemeItem 教学计划课程 — 对应 scheme_items
// 作用域为 (regulation_id, programme_id)；只能经由工作流服务修改
type SchemeItem struct {
	SchemeItemID         string                             `gorm:"type:uuid;primaryKey"                      json:"scheme_item_id"`
	RegulationID         string                             `gorm:"type:uuid;not null;index:idx_scheme_scope" json:"regulation_id"`
	ProgrammeID          string                             `gorm:"type:uuid;not null;index:idx_scheme_scope" json:"programme_id"`
	Semester             *int                               `gorm:"type:smallint"                             json:"semester,omitempty"`
	Code                 string                             `gorm:"type:varchar(30);not null;index"           json:"code"`
	Name                 string                             `gorm:"type:varchar(200);not null"                json:"name"`
	Category             string                             `gorm:"type:varchar(100);not null"                json:"category"`
	Type                 *string                            `gorm:"type:varchar(100)"                         json:"type,omitempty"`
	CreditPatternID      *string                            `gorm:"type:uuid"                                 json:"credit_pattern_id,omitempty"`
	EvaluationPatternID  *string                            `gorm:"type:uuid"                                 json:"evaluation_pattern_id,omitempty"`
	OfferingDepartmentID *string                            `gorm:"type:uuid"                                 json:"offering_department_id,omitempty"`
	Prerequisites        datatypes.JSONSlice[string]        `                                                 json:"prerequisites"`
	IsVertical           bool                               `gorm:"not null;default:false"                    json:"is_vertical"`
	VerticalName         *string                            `gorm:"type:varchar(100)"                         json:"vertical_name,omitempty"`
	IsPlaceholder        bool                               `gorm:"not null;default:false"                    json:"is_placeholder"`
	IsOneYear            bool                               `gorm:"not null;default:false"                    json:"is_one_year"`
	Status               string                             `gorm:"type:varchar(30);not null;default:'DRAFT'" json:"status"`
	StatusReason         string                             `gorm:"type:varchar(500)"                         json:"status_reason,omitempty"`
	MappingStatus        string                             `gorm:"type:varchar(30);not null;default:'DRAFT'" json:"mapping_status"`
	MappingReason        string                             `gorm:"type:varchar(500)"                         json:"mapping_reason,omitempty"`
	CourseOutcomes       datatypes.JSONType[CourseOutcomes] `                                                 json:"course_outcomes"`
	OutcomeMapping       datatypes.JSONType[OutcomeMapping] `                                                 json:"outcome_mapping"`
	Version              int                                `gorm:"not null;default:1"                        json:"version"`
	BaseModel

	// 关联
	CreditPattern      *CreditPattern     `gorm:"foreignKey:CreditPatternID;references:CreditPatternID"         json:"credit_pattern,omitempty"`
	EvaluationPattern  *EvaluationPattern `gorm:"foreignKey:EvaluationPatternID;references:EvaluationPatternID" json:"evaluation_pattern,omitempty"`
	OfferingDepartment *Department        `gorm:"foreignKey:OfferingDepartmentID;references:DepartmentID"       json:"offering_department,omitempty"`
}

func (SchemeItem) TableName() string { return "scheme_items" }

func (s *SchemeItem) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.SchemeItemID)
	return nil
}

// SemesterValue 学期为空时返回 0
func (s *SchemeItem) SemesterValue() int {
	if s.Semester == nil {
		return 0
	}
	return *s.Semester
}
