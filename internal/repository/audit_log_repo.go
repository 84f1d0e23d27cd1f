package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
)

// AuditLogRepository 审计日志数据访问接口（只追加）
type AuditLogRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	ListByEntityKind(ctx context.Context, entityKind string, limit int) ([]model.AuditLog, error)
}

type auditLogRepo struct {
	db *gorm.DB
}

// NewAuditLogRepo 创建 AuditLogRepository 实例
func NewAuditLogRepo(db *gorm.DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepo) ListByEntityKind(ctx context.Context, entityKind string, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_kind = ?", entityKind).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
