package model

import "gorm.io/gorm"

// Department 开课部门表 — 对应 departments
// 课程通过 (name, category) 定位开课部门
type Department struct {
	DepartmentID string `gorm:"type:uuid;primaryKey"       json:"department_id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Category     string `gorm:"type:varchar(50);not null"  json:"category"` // 取值来自 department_category 属性
	IsActive     bool   `gorm:"not null;default:true"      json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

func (d *Department) BeforeCreate(_ *gorm.DB) error {
	assignID(&d.DepartmentID)
	return nil
}
