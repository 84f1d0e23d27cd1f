package model

import "gorm.io/gorm"

// CreditPattern 学分模式 — 对应 credit_patterns
type CreditPattern struct {
	CreditPatternID string  `gorm:"type:uuid;primaryKey"       json:"credit_pattern_id"`
	RegulationID    string  `gorm:"type:uuid;not null;index"   json:"regulation_id"`
	Name            string  `gorm:"type:varchar(50);not null"  json:"name"`
	Lecture         int     `gorm:"type:smallint;not null"     json:"lecture"`
	Tutorial        int     `gorm:"type:smallint;not null"     json:"tutorial"`
	Practical       int     `gorm:"type:smallint;not null"     json:"practical"`
	Credits         float64 `gorm:"type:numeric(4,1);not null" json:"credits"`
	BaseModel
}

func (CreditPattern) TableName() string { return "credit_patterns" }

func (c *CreditPattern) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.CreditPatternID)
	return nil
}

// EvaluationPattern 考核模式 — 对应 evaluation_patterns
type EvaluationPattern struct {
	EvaluationPatternID string `gorm:"type:uuid;primaryKey"      json:"evaluation_pattern_id"`
	RegulationID        string `gorm:"type:uuid;not null;index"  json:"regulation_id"`
	Name                string `gorm:"type:varchar(50);not null" json:"name"`
	CourseType          string `gorm:"type:varchar(50);not null" json:"course_type"` // 须与课程 type 一致
	BaseModel
}

func (EvaluationPattern) TableName() string { return "evaluation_patterns" }

func (e *EvaluationPattern) BeforeCreate(_ *gorm.DB) error {
	assignID(&e.EvaluationPatternID)
	return nil
}

// 属性种类
const (
	AttributeCourseCategory     = "course_category"
	AttributeCourseType         = "course_type"
	AttributeDepartmentCategory = "department_category"
)

// Attribute 枚举属性 — 对应 attributes
// kind=course_category 时，分区标记决定学期/方向/占位规则
type Attribute struct {
	AttributeID string `gorm:"type:uuid;primaryKey"                  json:"attribute_id"`
	Kind        string `gorm:"type:varchar(30);not null;index"       json:"kind"`
	Value       string `gorm:"type:varchar(100);not null"            json:"value"`

	NonSemester                  bool `gorm:"not null;default:false" json:"non_semester"`                   // 不设学期
	SemesterPlaceholder          bool `gorm:"not null;default:false" json:"semester_placeholder"`           // 仅占位课可设学期
	VerticalAllowed              bool `gorm:"not null;default:false" json:"vertical_allowed"`               // 可归属方向
	PlaceholderAllowed           bool `gorm:"not null;default:false" json:"placeholder_allowed"`            // 可设为占位
	VerticalPlaceholderForbidden bool `gorm:"not null;default:false" json:"vertical_placeholder_forbidden"` // 无学期时禁止方向/占位
	VersionedModel
}

func (Attribute) TableName() string { return "attributes" }

func (a *Attribute) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.AttributeID)
	return nil
}
