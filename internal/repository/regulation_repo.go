package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
)

// RegulationRepository 法规数据访问接口
type RegulationRepository interface {
	Create(ctx context.Context, reg *model.Regulation) error
	GetByID(ctx context.Context, id string) (*model.Regulation, error)
}

type regulationRepo struct {
	db *gorm.DB
}

// NewRegulationRepo 创建 RegulationRepository 实例
func NewRegulationRepo(db *gorm.DB) RegulationRepository {
	return &regulationRepo{db: db}
}

func (r *regulationRepo) Create(ctx context.Context, reg *model.Regulation) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *regulationRepo) GetByID(ctx context.Context, id string) (*model.Regulation, error) {
	var reg model.Regulation
	err := r.db.WithContext(ctx).
		Where("regulation_id = ?", id).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ScopeRepository 专业与作用域（法规 × 专业）数据访问接口
type ScopeRepository interface {
	CreateProgramme(ctx context.Context, prog *model.Programme) error
	Register(ctx context.Context, rp *model.RegulationProgramme) error
	// Get 读取作用域记录（预加载专业）
	Get(ctx context.Context, regulationID, programmeID string) (*model.RegulationProgramme, error)
	SetFrozenSemesters(ctx context.Context, regulationID, programmeID string, frozen model.IntArray, updatedBy string) error
}

type scopeRepo struct {
	db *gorm.DB
}

// NewScopeRepo 创建 ScopeRepository 实例
func NewScopeRepo(db *gorm.DB) ScopeRepository {
	return &scopeRepo{db: db}
}

func (r *scopeRepo) CreateProgramme(ctx context.Context, prog *model.Programme) error {
	return r.db.WithContext(ctx).Create(prog).Error
}

func (r *scopeRepo) Register(ctx context.Context, rp *model.RegulationProgramme) error {
	return r.db.WithContext(ctx).Create(rp).Error
}

func (r *scopeRepo) Get(ctx context.Context, regulationID, programmeID string) (*model.RegulationProgramme, error) {
	var rp model.RegulationProgramme
	err := r.db.WithContext(ctx).
		Preload("Programme").
		Where("regulation_id = ? AND programme_id = ?", regulationID, programmeID).
		First(&rp).Error
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *scopeRepo) SetFrozenSemesters(ctx context.Context, regulationID, programmeID string, frozen model.IntArray, updatedBy string) error {
	res := r.db.WithContext(ctx).
		Model(&model.RegulationProgramme{}).
		Where("regulation_id = ? AND programme_id = ?", regulationID, programmeID).
		Updates(map[string]interface{}{
			"frozen_semesters": frozen,
			"updated_by":       updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
