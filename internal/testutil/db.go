// Package testutil 测试辅助：内存 SQLite 数据库与基础数据
package testutil

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"regulations/backend/internal/model"
)

// NewDB 创建独立的内存 SQLite 数据库并迁移全部模型
//
// 连接池限定为 1：内存库每个连接都是独立的数据库。
// 因此事务内只能使用事务连接，否则会等待自身持有的连接。
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return db
}

// Fixture 一个完整可用的作用域及其参考数据
type Fixture struct {
	Regulation *model.Regulation
	Programme  *model.Programme
	Scope      *model.RegulationProgramme

	CreditPattern     *model.CreditPattern
	EvaluationPattern *model.EvaluationPattern
	Department        *model.Department
}

// 预置的课程类别
const (
	CategoryCore     = "Professional Core"     // 普通学期类别
	CategoryElective = "Professional Elective" // 仅占位课可设学期
	CategoryAudit    = "Mandatory Audit"       // 不设学期
	CategoryOpen     = "Open Elective"         // 可设方向
	CourseTypeTheory = "Theory"
	DepartmentCSE    = "Computer Science"
	DeptCategoryCore = "Engineering"
	VerticalAI       = "Artificial Intelligence"
)

// Seed 写入一个已批准法规、4 年 × 2 学期的专业及配套参考数据
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()
	ctx := context.Background()

	f := &Fixture{
		Regulation: &model.Regulation{Name: "R2024", Status: model.RegulationApproved},
		Programme:  &model.Programme{Name: "B.E. CSE", Duration: 4, SemesterCount: 2},
	}
	mustCreate(t, db.WithContext(ctx), f.Regulation)
	mustCreate(t, db.WithContext(ctx), f.Programme)

	f.Scope = &model.RegulationProgramme{
		RegulationID:      f.Regulation.RegulationID,
		ProgrammeID:       f.Programme.ProgrammeID,
		Verticals:         []string{VerticalAI},
		ProgrammeOutcomes: []string{"PO1", "PO2", "PSO1"},
		FrozenSemesters:   model.IntArray{},
	}
	mustCreate(t, db, f.Scope)

	f.CreditPattern = &model.CreditPattern{RegulationID: f.Regulation.RegulationID, Name: "3-0-0", Lecture: 3, Credits: 3}
	f.EvaluationPattern = &model.EvaluationPattern{RegulationID: f.Regulation.RegulationID, Name: "Theory 40/60", CourseType: CourseTypeTheory}
	f.Department = &model.Department{Name: DepartmentCSE, Category: DeptCategoryCore, IsActive: true}
	mustCreate(t, db, f.CreditPattern)
	mustCreate(t, db, f.EvaluationPattern)
	mustCreate(t, db, f.Department)

	attrs := []*model.Attribute{
		{Kind: model.AttributeCourseCategory, Value: CategoryCore},
		{Kind: model.AttributeCourseCategory, Value: CategoryElective, SemesterPlaceholder: true, PlaceholderAllowed: true, VerticalPlaceholderForbidden: true},
		{Kind: model.AttributeCourseCategory, Value: CategoryAudit, NonSemester: true},
		{Kind: model.AttributeCourseCategory, Value: CategoryOpen, VerticalAllowed: true, PlaceholderAllowed: true},
		{Kind: model.AttributeCourseType, Value: CourseTypeTheory},
		{Kind: model.AttributeDepartmentCategory, Value: DeptCategoryCore},
	}
	for _, a := range attrs {
		mustCreate(t, db, a)
	}
	return f
}

// Item 构造一门可通过校验的普通课程（未持久化）
func (f *Fixture) Item(code string, semester int) *model.SchemeItem {
	sem := semester
	typ := CourseTypeTheory
	return &model.SchemeItem{
		RegulationID:         f.Regulation.RegulationID,
		ProgrammeID:          f.Programme.ProgrammeID,
		Semester:             &sem,
		Code:                 code,
		Name:                 "Course " + code,
		Category:             CategoryCore,
		Type:                 &typ,
		CreditPatternID:      &f.CreditPattern.CreditPatternID,
		EvaluationPatternID:  &f.EvaluationPattern.EvaluationPatternID,
		OfferingDepartmentID: &f.Department.DepartmentID,
		Status:               "DRAFT",
		MappingStatus:        "DRAFT",
		Version:              1,
	}
}

// Insert 直接写入课程（绕过工作流，用于准备测试状态）
func (f *Fixture) Insert(t *testing.T, db *gorm.DB, item *model.SchemeItem) *model.SchemeItem {
	t.Helper()
	mustCreate(t, db, item)
	return item
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("写入 %T 失败: %v", v, err)
	}
}
