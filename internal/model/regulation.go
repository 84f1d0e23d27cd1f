package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 法规状态
const (
	RegulationDraft    = "draft"
	RegulationApproved = "approved"
	RegulationArchived = "archived"
)

// Regulation 法规（课程体系框架）— 对应 regulations
type Regulation struct {
	RegulationID string `gorm:"type:uuid;primaryKey"                     json:"regulation_id"`
	Name         string `gorm:"type:varchar(100);not null"               json:"name"`
	Status       string `gorm:"type:varchar(20);not null;default:'draft'" json:"status"` // draft | approved | archived
	VersionedModel
}

func (Regulation) TableName() string { return "regulations" }

func (r *Regulation) BeforeCreate(_ *gorm.DB) error {
	assignID(&r.RegulationID)
	return nil
}

// Programme 专业 — 对应 programmes
type Programme struct {
	ProgrammeID   string `gorm:"type:uuid;primaryKey"       json:"programme_id"`
	Name          string `gorm:"type:varchar(100);not null" json:"name"`
	Duration      int    `gorm:"type:smallint;not null"     json:"duration"`       // 学制（年）
	SemesterCount int    `gorm:"type:smallint;not null"     json:"semester_count"` // 每学年学期数
	VersionedModel
}

func (Programme) TableName() string { return "programmes" }

func (p *Programme) BeforeCreate(_ *gorm.DB) error {
	assignID(&p.ProgrammeID)
	return nil
}

// MaxSemester 专业允许的最大学期序号
func (p *Programme) MaxSemester() int {
	return p.Duration * p.SemesterCount
}

// RegulationProgramme 法规下注册的专业（即作用域）— 对应 regulation_programmes
type RegulationProgramme struct {
	RegulationID      string                      `gorm:"type:uuid;primaryKey" json:"regulation_id"`
	ProgrammeID       string                      `gorm:"type:uuid;primaryKey" json:"programme_id"`
	Verticals         datatypes.JSONSlice[string] `json:"verticals"`
	ProgrammeOutcomes datatypes.JSONSlice[string] `json:"programme_outcomes"` // PO1..PO12, PSO1..
	FrozenSemesters   IntArray                    `json:"frozen_semesters"`
	BaseModel

	// 关联
	Programme *Programme `gorm:"foreignKey:ProgrammeID;references:ProgrammeID" json:"programme,omitempty"`
}

func (RegulationProgramme) TableName() string { return "regulation_programmes" }

// HasVertical 判断专业是否声明了该方向
func (rp *RegulationProgramme) HasVertical(name string) bool {
	for _, v := range rp.Verticals {
		if v == name {
			return true
		}
	}
	return false
}

// HasProgrammeOutcome 判断 PO 键是否已定义
func (rp *RegulationProgramme) HasProgrammeOutcome(key string) bool {
	for _, v := range rp.ProgrammeOutcomes {
		if v == key {
			return true
		}
	}
	return false
}
