package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
)

// CreditPatternRepository 学分模式数据访问接口
type CreditPatternRepository interface {
	Create(ctx context.Context, cp *model.CreditPattern) error
	GetByID(ctx context.Context, id string) (*model.CreditPattern, error)
}

type creditPatternRepo struct {
	db *gorm.DB
}

// NewCreditPatternRepo 创建 CreditPatternRepository 实例
func NewCreditPatternRepo(db *gorm.DB) CreditPatternRepository {
	return &creditPatternRepo{db: db}
}

func (r *creditPatternRepo) Create(ctx context.Context, cp *model.CreditPattern) error {
	return r.db.WithContext(ctx).Create(cp).Error
}

func (r *creditPatternRepo) GetByID(ctx context.Context, id string) (*model.CreditPattern, error) {
	var cp model.CreditPattern
	err := r.db.WithContext(ctx).
		Where("credit_pattern_id = ?", id).
		First(&cp).Error
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// EvaluationPatternRepository 考核模式数据访问接口
type EvaluationPatternRepository interface {
	Create(ctx context.Context, ep *model.EvaluationPattern) error
	GetByID(ctx context.Context, id string) (*model.EvaluationPattern, error)
	// RenameCourseType 课程类型属性改名时级联更新
	RenameCourseType(ctx context.Context, oldValue, newValue string) (int64, error)
}

type evaluationPatternRepo struct {
	db *gorm.DB
}

// NewEvaluationPatternRepo 创建 EvaluationPatternRepository 实例
func NewEvaluationPatternRepo(db *gorm.DB) EvaluationPatternRepository {
	return &evaluationPatternRepo{db: db}
}

func (r *evaluationPatternRepo) Create(ctx context.Context, ep *model.EvaluationPattern) error {
	return r.db.WithContext(ctx).Create(ep).Error
}

func (r *evaluationPatternRepo) GetByID(ctx context.Context, id string) (*model.EvaluationPattern, error) {
	var ep model.EvaluationPattern
	err := r.db.WithContext(ctx).
		Where("evaluation_pattern_id = ?", id).
		First(&ep).Error
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *evaluationPatternRepo) RenameCourseType(ctx context.Context, oldValue, newValue string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.EvaluationPattern{}).
		Where("course_type = ?", oldValue).
		Update("course_type", newValue)
	return res.RowsAffected, res.Error
}
