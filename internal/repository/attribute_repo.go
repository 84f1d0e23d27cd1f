package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
	pkgerrors "regulations/backend/pkg/errors"
)

// AttributeRepository 枚举属性数据访问接口
type AttributeRepository interface {
	Create(ctx context.Context, attr *model.Attribute) error
	GetByID(ctx context.Context, id string) (*model.Attribute, error)
	// GetByValue 按 (kind, value) 查找
	GetByValue(ctx context.Context, kind, value string) (*model.Attribute, error)
	ListByKind(ctx context.Context, kind string) ([]model.Attribute, error)
	// UpdateValue 带版本号校验的改名，版本不一致返回 ErrOptimisticLock
	UpdateValue(ctx context.Context, attr *model.Attribute, newValue, updatedBy string) error
}

type attributeRepo struct {
	db *gorm.DB
}

// NewAttributeRepo 创建 AttributeRepository 实例
func NewAttributeRepo(db *gorm.DB) AttributeRepository {
	return &attributeRepo{db: db}
}

func (r *attributeRepo) Create(ctx context.Context, attr *model.Attribute) error {
	return r.db.WithContext(ctx).Create(attr).Error
}

func (r *attributeRepo) GetByID(ctx context.Context, id string) (*model.Attribute, error) {
	var attr model.Attribute
	err := r.db.WithContext(ctx).
		Where("attribute_id = ?", id).
		First(&attr).Error
	if err != nil {
		return nil, err
	}
	return &attr, nil
}

func (r *attributeRepo) GetByValue(ctx context.Context, kind, value string) (*model.Attribute, error) {
	var attr model.Attribute
	err := r.db.WithContext(ctx).
		Where("kind = ? AND value = ?", kind, value).
		First(&attr).Error
	if err != nil {
		return nil, err
	}
	return &attr, nil
}

func (r *attributeRepo) ListByKind(ctx context.Context, kind string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("value ASC").
		Find(&attrs).Error
	return attrs, err
}

func (r *attributeRepo) UpdateValue(ctx context.Context, attr *model.Attribute, newValue, updatedBy string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Attribute{}).
		Where("attribute_id = ? AND version = ?", attr.AttributeID, attr.Version).
		Updates(map[string]interface{}{
			"value":      newValue,
			"updated_by": updatedBy,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	attr.Value = newValue
	attr.Version++
	return nil
}
