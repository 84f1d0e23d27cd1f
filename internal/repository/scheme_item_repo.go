package repository

import (
	"context"

	"gorm.io/gorm"

	"regulations/backend/internal/model"
	pkgerrors "regulations/backend/pkg/errors"
)

// SchemeItemFilter 课程列表筛选条件
type SchemeItemFilter struct {
	RegulationID  string
	ProgrammeID   string
	Semester      *int
	Status        string
	MappingStatus string
	Offset        int
	Limit         int
}

// CodeMatch 课程代码唯一性查询条件
type CodeMatch struct {
	RegulationID  string
	ProgrammeID   string
	Code          string
	Semester      *int
	IsPlaceholder bool
	IsOneYear     bool
}

// ScopeRef 作用域（法规 + 专业）
type ScopeRef struct {
	RegulationID string
	ProgrammeID  string
}

// SchemeItemRepository 教学计划课程数据访问接口
type SchemeItemRepository interface {
	Create(ctx context.Context, item *model.SchemeItem) error
	GetByID(ctx context.Context, id string) (*model.SchemeItem, error)
	// ListByIDs 按 ID 批量读取，结果顺序不保证
	ListByIDs(ctx context.Context, ids []string) ([]model.SchemeItem, error)
	ListByScope(ctx context.Context, regulationID, programmeID string) ([]model.SchemeItem, error)
	List(ctx context.Context, filter SchemeItemFilter) ([]model.SchemeItem, int64, error)
	// FindCodeMatches 同作用域内 (code, semester, is_placeholder, is_one_year) 相同的课程
	FindCodeMatches(ctx context.Context, match CodeMatch) ([]model.SchemeItem, error)
	// Update 带版本号校验的整行更新，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, item *model.SchemeItem) error
	UpdateStatus(ctx context.Context, ids []string, status, reason, updatedBy string) (int64, error)
	UpdateMappingStatus(ctx context.Context, ids []string, status, reason, updatedBy string) (int64, error)
	// Delete 物理删除
	Delete(ctx context.Context, id string) error
	RenameCategory(ctx context.Context, oldValue, newValue string) (int64, error)
	RenameType(ctx context.Context, oldValue, newValue string) (int64, error)
	// ListScopes 已有课程的全部作用域
	ListScopes(ctx context.Context) ([]ScopeRef, error)
}

type schemeItemRepo struct {
	db *gorm.DB
}

// NewSchemeItemRepo 创建 SchemeItemRepository 实例
func NewSchemeItemRepo(db *gorm.DB) SchemeItemRepository {
	return &schemeItemRepo{db: db}
}

func (r *schemeItemRepo) Create(ctx context.Context, item *model.SchemeItem) error {
	return r.db.WithContext(ctx).Omit("CreditPattern", "EvaluationPattern", "OfferingDepartment").Create(item).Error
}

func (r *schemeItemRepo) GetByID(ctx context.Context, id string) (*model.SchemeItem, error) {
	var item model.SchemeItem
	err := r.db.WithContext(ctx).
		Where("scheme_item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *schemeItemRepo) ListByIDs(ctx context.Context, ids []string) ([]model.SchemeItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.SchemeItem
	err := r.db.WithContext(ctx).
		Where("scheme_item_id IN ?", ids).
		Find(&items).Error
	return items, err
}

func (r *schemeItemRepo) ListByScope(ctx context.Context, regulationID, programmeID string) ([]model.SchemeItem, error) {
	var items []model.SchemeItem
	err := r.db.WithContext(ctx).
		Where("regulation_id = ? AND programme_id = ?", regulationID, programmeID).
		Order("semester ASC, code ASC").
		Find(&items).Error
	return items, err
}

func (r *schemeItemRepo) List(ctx context.Context, filter SchemeItemFilter) ([]model.SchemeItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.SchemeItem{}).
		Where("regulation_id = ? AND programme_id = ?", filter.RegulationID, filter.ProgrammeID)

	if filter.Semester != nil {
		query = query.Where("semester = ?", *filter.Semester)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MappingStatus != "" {
		query = query.Where("mapping_status = ?", filter.MappingStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.SchemeItem
	err := query.
		Preload("CreditPattern").
		Preload("EvaluationPattern").
		Preload("OfferingDepartment").
		Order("semester ASC, code ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&items).Error
	return items, total, err
}

func (r *schemeItemRepo) FindCodeMatches(ctx context.Context, match CodeMatch) ([]model.SchemeItem, error) {
	query := r.db.WithContext(ctx).
		Where("regulation_id = ? AND programme_id = ? AND code = ?", match.RegulationID, match.ProgrammeID, match.Code).
		Where("is_placeholder = ? AND is_one_year = ?", match.IsPlaceholder, match.IsOneYear)
	if match.Semester == nil {
		query = query.Where("semester IS NULL")
	} else {
		query = query.Where("semester = ?", *match.Semester)
	}

	var items []model.SchemeItem
	err := query.Find(&items).Error
	return items, err
}

func (r *schemeItemRepo) Update(ctx context.Context, item *model.SchemeItem) error {
	res := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Where("scheme_item_id = ? AND version = ?", item.SchemeItemID, item.Version).
		Updates(map[string]interface{}{
			"semester":               item.Semester,
			"code":                   item.Code,
			"name":                   item.Name,
			"category":               item.Category,
			"type":                   item.Type,
			"credit_pattern_id":      item.CreditPatternID,
			"evaluation_pattern_id":  item.EvaluationPatternID,
			"offering_department_id": item.OfferingDepartmentID,
			"prerequisites":          item.Prerequisites,
			"is_vertical":            item.IsVertical,
			"vertical_name":          item.VerticalName,
			"is_placeholder":         item.IsPlaceholder,
			"is_one_year":            item.IsOneYear,
			"status":                 item.Status,
			"status_reason":          item.StatusReason,
			"mapping_status":         item.MappingStatus,
			"mapping_reason":         item.MappingReason,
			"course_outcomes":        item.CourseOutcomes,
			"outcome_mapping":        item.OutcomeMapping,
			"updated_by":             item.UpdatedBy,
			"version":                gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	item.Version++
	return nil
}

func (r *schemeItemRepo) UpdateStatus(ctx context.Context, ids []string, status, reason, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Where("scheme_item_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":        status,
			"status_reason": reason,
			"updated_by":    updatedBy,
			"version":       gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *schemeItemRepo) UpdateMappingStatus(ctx context.Context, ids []string, status, reason, updatedBy string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Where("scheme_item_id IN ?", ids).
		Updates(map[string]interface{}{
			"mapping_status": status,
			"mapping_reason": reason,
			"updated_by":     updatedBy,
			"version":        gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *schemeItemRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("scheme_item_id = ?", id).
		Delete(&model.SchemeItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *schemeItemRepo) RenameCategory(ctx context.Context, oldValue, newValue string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Where("category = ?", oldValue).
		Updates(map[string]interface{}{
			"category": newValue,
			"version":  gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *schemeItemRepo) RenameType(ctx context.Context, oldValue, newValue string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Where("type = ?", oldValue).
		Updates(map[string]interface{}{
			"type":    newValue,
			"version": gorm.Expr("version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *schemeItemRepo) ListScopes(ctx context.Context) ([]ScopeRef, error) {
	var scopes []ScopeRef
	err := r.db.WithContext(ctx).
		Model(&model.SchemeItem{}).
		Distinct("regulation_id", "programme_id").
		Order("regulation_id, programme_id").
		Scan(&scopes).Error
	return scopes, err
}
