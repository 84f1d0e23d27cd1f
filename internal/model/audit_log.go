package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog 操作审计日志 — 对应 audit_logs（只追加）
type AuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey"               json:"audit_log_id"`
	EntityKind string    `gorm:"type:varchar(30);not null;index"    json:"entity_kind"` // scheme_item | outcome_mapping | attribute | scope
	Action     string    `gorm:"type:varchar(30);not null"          json:"action"`      // create | update | delete | status_change ...
	ActorID    string    `gorm:"type:varchar(64);not null"          json:"actor_id"`
	Message    string    `gorm:"type:text;not null"                 json:"message"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.AuditLogID)
	return nil
}

// AllModels 全部持久化模型（测试 AutoMigrate 使用）
func AllModels() []interface{} {
	return []interface{}{
		&Regulation{},
		&Programme{},
		&RegulationProgramme{},
		&CreditPattern{},
		&EvaluationPattern{},
		&Department{},
		&Attribute{},
		&SchemeItem{},
		&AuditLog{},
	}
}
