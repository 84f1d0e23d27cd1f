package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
)

// DepartmentRepository 开课部门数据访问接口
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id string) (*model.Department, error)
	// GetByNameAndCategory 按 (name, category) 定位部门
	GetByNameAndCategory(ctx context.Context, name, category string) (*model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
	// RenameCategory 部门类别属性改名时级联更新，返回受影响行数
	RenameCategory(ctx context.Context, oldValue, newValue string) (int64, error)
}

// departmentRepo DepartmentRepository 的 GORM 实现
type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepo) GetByID(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Where("department_id = ?", id).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) GetByNameAndCategory(ctx context.Context, name, category string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Where("name = ? AND category = ?", name, category).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) List(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&depts).Error
	return depts, err
}

func (r *departmentRepo) RenameCategory(ctx context.Context, oldValue, newValue string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Department{}).
		Where("category = ?", oldValue).
		Updates(map[string]interface{}{
			"category": newValue,
			"version":  gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}
