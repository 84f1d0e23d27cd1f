package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"regulations/backend/config"
	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
	"regulations/backend/internal/testutil"
	"regulations/backend/internal/workflow"
	pkgerrors "regulations/backend/pkg/errors"
	"regulations/backend/pkg/scopelock"
)

// ── 测试角色 ──

var (
	adminActor     = dto.Actor{UserID: "u-admin", Roles: []string{workflow.RoleAdmin}}
	facultyActor   = dto.Actor{UserID: "u-faculty", Roles: []string{workflow.RoleSchemeFaculty}}
	approver1Actor = dto.Actor{UserID: "u-appr1", Roles: []string{workflow.RoleSchemeApprover1}}
	approver2Actor = dto.Actor{UserID: "u-appr2", Roles: []string{workflow.RoleSchemeApprover2}}
	outcomeActor   = dto.Actor{UserID: "u-outcome", Roles: []string{workflow.RoleOutcomeApprover}}
	viewerActor    = dto.Actor{UserID: "u-viewer", Roles: []string{workflow.RoleViewer}}
)

// ── 协作方替身 ──

type auditEntry struct {
	kind, action, actor, message string
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) Record(entityKind, action string, actor dto.Actor, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{entityKind, action, actor.UserID, message})
}

func (a *recordingAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Notify(_ context.Context, eventKind string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, eventKind)
}

func (n *recordingNotifier) has(kind string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, k := range n.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ── 测试环境 ──

type testEnv struct {
	db       *gorm.DB
	repo     *repository.Repository
	f        *testutil.Fixture
	locks    *scopelock.Coordinator
	audit    *recordingAudit
	notifier *recordingNotifier

	scheme    SchemeService
	attribute AttributeService
	scope     ScopeService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithAudit(t, nil)
}

// newTestEnvWithAudit audit 为 nil 时使用 recordingAudit
func newTestEnvWithAudit(t *testing.T, audit AuditSink) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{
		db:       db,
		repo:     repository.NewRepository(db),
		f:        testutil.Seed(t, db),
		locks:    scopelock.New(),
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
	}
	if audit == nil {
		audit = env.audit
	}
	gw := repository.NewGateway(env.repo, config.WorkflowConfig{CommitTimeout: 5 * time.Second, SynchronousCommit: "remote_apply"})
	logger := zap.NewNop()

	env.scheme = NewSchemeService(env.repo, gw, env.locks, audit, env.notifier, logger)
	env.attribute = NewAttributeService(env.repo, gw, env.locks, DefaultCascades(), audit, env.notifier, logger)
	env.scope = NewScopeService(env.repo, gw, env.locks, audit, env.notifier, logger)
	return env
}

// createReq 一门合法的普通课程请求
func (e *testEnv) createReq(code string, semester int) *dto.SchemeItemRequest {
	sem := semester
	typ := testutil.CourseTypeTheory
	deptName := testutil.DepartmentCSE
	deptCat := testutil.DeptCategoryCore
	return &dto.SchemeItemRequest{
		RegulationID:        e.f.Regulation.RegulationID,
		ProgrammeID:         e.f.Programme.ProgrammeID,
		Semester:            &sem,
		Code:                code,
		Name:                "Course " + code,
		Category:            testutil.CategoryCore,
		Type:                &typ,
		CreditPatternID:     &e.f.CreditPattern.CreditPatternID,
		EvaluationPatternID: &e.f.EvaluationPattern.EvaluationPatternID,
		DepartmentName:      &deptName,
		DepartmentCategory:  &deptCat,
	}
}

// placeholderReq 专业选修占位课请求
func (e *testEnv) placeholderReq(code string, semester int) *dto.SchemeItemRequest {
	sem := semester
	return &dto.SchemeItemRequest{
		RegulationID:  e.f.Regulation.RegulationID,
		ProgrammeID:   e.f.Programme.ProgrammeID,
		Semester:      &sem,
		Code:          code,
		Name:          "Elective " + code,
		Category:      testutil.CategoryElective,
		IsPlaceholder: true,
	}
}

func (e *testEnv) insert(t *testing.T, code string, semester int, status string) *model.SchemeItem {
	t.Helper()
	item := e.f.Item(code, semester)
	item.Status = status
	return e.f.Insert(t, e.db, item)
}

func (e *testEnv) reload(t *testing.T, id string) *model.SchemeItem {
	t.Helper()
	item, err := e.repo.SchemeItem.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("重新读取课程失败: %v", err)
	}
	return item
}

func (e *testEnv) statusReq(to, reason string, ids ...string) *dto.StatusChangeRequest {
	return &dto.StatusChangeRequest{
		RegulationID: e.f.Regulation.RegulationID,
		ProgrammeID:  e.f.Programme.ProgrammeID,
		ItemIDs:      ids,
		To:           to,
		Reason:       reason,
	}
}

// ── 断言辅助 ──

func requireValidationContains(t *testing.T, err error, fragment string) {
	t.Helper()
	var ve *pkgerrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	for _, m := range ve.Messages {
		if strings.Contains(m, fragment) {
			return
		}
	}
	t.Fatalf("期望校验信息包含 %q，实际: %v", fragment, ve.Messages)
}

func requirePrecondition(t *testing.T, err error) {
	t.Helper()
	var pe *pkgerrors.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 PreconditionError，实际: %v", err)
	}
}

func requireForbidden(t *testing.T, err error) {
	t.Helper()
	var pe *pkgerrors.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("期望 PermissionError，实际: %v", err)
	}
}
