package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Regulation        RegulationRepository
	Scope             ScopeRepository
	CreditPattern     CreditPatternRepository
	EvaluationPattern EvaluationPatternRepository
	Department        DepartmentRepository
	Attribute         AttributeRepository
	SchemeItem        SchemeItemRepository
	AuditLog          AuditLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:                db,
		Regulation:        NewRegulationRepo(db),
		Scope:             NewScopeRepo(db),
		CreditPattern:     NewCreditPatternRepo(db),
		EvaluationPattern: NewEvaluationPatternRepo(db),
		Department:        NewDepartmentRepo(db),
		Attribute:         NewAttributeRepo(db),
		SchemeItem:        NewSchemeItemRepo(db),
		AuditLog:          NewAuditLogRepo(db),
	}
}

// DB 底层连接（事务网关使用）
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTx 返回绑定到事务连接的 Repository 聚合
// 事务内只能使用返回值，混用外层 Repository 会占用第二个连接
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}
