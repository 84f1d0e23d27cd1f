package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/workflow"
	pkgerrors "regulations/backend/pkg/errors"
)

// ────────────────────── Create ──────────────────────

func TestCreate_Success(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.scheme.Create(context.Background(), facultyActor, env.createReq("CS101", 1))
	if err != nil {
		t.Fatalf("期望创建成功，实际错误: %v", err)
	}
	if resp.Status != workflow.StatusDraft || resp.MappingStatus != workflow.StatusDraft {
		t.Errorf("新课程应为 DRAFT，实际 %s/%s", resp.Status, resp.MappingStatus)
	}
	if resp.Version != 1 {
		t.Errorf("期望版本 1，实际 %d", resp.Version)
	}
	if env.audit.count() != 1 {
		t.Errorf("期望 1 条审计记录，实际 %d", env.audit.count())
	}
	if !env.notifier.has(EventItemCreated) {
		t.Error("期望发出 created 事件")
	}
}

func TestCreate_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.scheme.Create(context.Background(), viewerActor, env.createReq("CS101", 1))
	requireForbidden(t, err)
	if env.audit.count() != 0 {
		t.Error("被拒绝的操作不应产生审计记录")
	}
}

func TestCreate_FrozenSemester(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.scope.FreezeSemesters(ctx, adminActor, &dto.FreezeSemestersRequest{
		RegulationID: env.f.Regulation.RegulationID,
		ProgrammeID:  env.f.Programme.ProgrammeID,
		Semesters:    []int{2},
	}); err != nil {
		t.Fatalf("冻结学期失败: %v", err)
	}

	_, err := env.scheme.Create(ctx, facultyActor, env.createReq("CS201", 2))
	requireValidationContains(t, err, "Semester 2 is frozen")

	// 管理员不受冻结限制
	if _, err := env.scheme.Create(ctx, adminActor, env.createReq("CS201", 2)); err != nil {
		t.Fatalf("管理员应可在冻结学期创建: %v", err)
	}
}

// 并发创建同一代码：作用域锁保证只有一个成功
func TestCreate_ConcurrentSameCodeSerialized(t *testing.T) {
	env := newTestEnv(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.scheme.Create(context.Background(), facultyActor, env.createReq("CS101", 1))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		var ve *pkgerrors.ValidationError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ve):
			dup++
		default:
			t.Fatalf("意外错误: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("期望 1 次成功、%d 次重复，实际 %d/%d", n-1, ok, dup)
	}
}

// ────────────────────── Update ──────────────────────

func TestUpdate_VersionAndEditability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.scheme.Create(ctx, facultyActor, env.createReq("CS101", 1))
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	req := env.createReq("CS101", 1)
	req.Name = "Programming in Go"
	req.Version = created.Version
	updated, err := env.scheme.Update(ctx, facultyActor, created.ID, req)
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if updated.Name != "Programming in Go" || updated.Version != 2 {
		t.Errorf("期望新名称且版本 2，实际 %q v%d", updated.Name, updated.Version)
	}

	// 携带旧版本号
	_, err = env.scheme.Update(ctx, facultyActor, created.ID, req)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("期望乐观锁冲突，实际: %v", err)
	}

	approved := env.insert(t, "CS102", 1, workflow.StatusApproved)
	_, err = env.scheme.Update(ctx, facultyActor, approved.SchemeItemID, env.createReq("CS102", 1))
	requirePrecondition(t, err)
}

func TestUpdate_KeepsOwnCodeUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created, err := env.scheme.Create(ctx, facultyActor, env.createReq("CS101", 1))
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if _, err := env.scheme.Create(ctx, facultyActor, env.createReq("CS102", 1)); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 不改代码的更新只匹配到自身
	if _, err := env.scheme.Update(ctx, facultyActor, created.ID, env.createReq("CS101", 1)); err != nil {
		t.Fatalf("更新自身不应触发重复: %v", err)
	}
	// 改成已存在的代码
	_, err = env.scheme.Update(ctx, facultyActor, created.ID, env.createReq("CS102", 1))
	requireValidationContains(t, err, "Course code CS102 already exists")
}

func TestUpdate_CannotMoveScope(t *testing.T) {
	env := newTestEnv(t)
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	req := env.createReq("CS101", 1)
	req.ProgrammeID = "00000000-0000-0000-0000-000000000003"
	_, err := env.scheme.Update(context.Background(), facultyActor, item.SchemeItemID, req)
	requirePrecondition(t, err)
}

// 更新被依赖的课程时，需按后续课程的视角重新校验先修关系
func TestUpdate_RechecksDependents(t *testing.T) {
	setup := func(t *testing.T) (*testEnv, string, string) {
		t.Helper()
		env := newTestEnv(t)
		ctx := context.Background()
		a, err := env.scheme.Create(ctx, facultyActor, env.createReq("CS201", 2))
		if err != nil {
			t.Fatalf("创建 CS201 失败: %v", err)
		}
		reqB := env.createReq("CS301", 3)
		reqB.Prerequisites = []string{a.ID}
		b, err := env.scheme.Create(ctx, facultyActor, reqB)
		if err != nil {
			t.Fatalf("创建 CS301 失败: %v", err)
		}
		return env, a.ID, b.ID
	}

	t.Run("移到后续课程之后的学期", func(t *testing.T) {
		env, aID, _ := setup(t)
		_, err := env.scheme.Update(context.Background(), facultyActor, aID, env.createReq("CS201", 4))
		requireValidationContains(t, err, "prerequisites must be from an earlier semester: CS201 (required by CS301)")
		if got := env.reload(t, aID); got.Semester == nil || *got.Semester != 2 {
			t.Errorf("被拒绝的更新不应落库，实际学期 %v", got.Semester)
		}
	})

	t.Run("把后续课程设为自己的先修课", func(t *testing.T) {
		env, aID, bID := setup(t)
		req := env.createReq("CS201", 4)
		req.Prerequisites = []string{bID}
		_, err := env.scheme.Update(context.Background(), facultyActor, aID, req)
		requireValidationContains(t, err, "prerequisites would form a cycle: CS301")
		if got := env.reload(t, aID); len(got.Prerequisites) != 0 {
			t.Errorf("不应持久化循环先修，实际 %v", got.Prerequisites)
		}
	})

	t.Run("同学期内形成环", func(t *testing.T) {
		env, aID, bID := setup(t)
		req := env.createReq("CS201", 2)
		req.Prerequisites = []string{bID}
		_, err := env.scheme.Update(context.Background(), facultyActor, aID, req)
		requireValidationContains(t, err, "prerequisites would form a cycle: CS301")
	})

	t.Run("改为占位课", func(t *testing.T) {
		env, aID, _ := setup(t)
		_, err := env.scheme.Update(context.Background(), facultyActor, aID, env.placeholderReq("CS201", 2))
		requireValidationContains(t, err, "invalid prerequisite course codes: CS201 (required by CS301)")
	})

	t.Run("不影响后续课程的更新仍然通过", func(t *testing.T) {
		env, aID, _ := setup(t)
		req := env.createReq("CS201", 1)
		req.Name = "Data Structures"
		if _, err := env.scheme.Update(context.Background(), facultyActor, aID, req); err != nil {
			t.Fatalf("合法更新不应失败: %v", err)
		}
	})
}

func TestGet_AllowedTransitionsFollowRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusWaitingForApproval)

	got, err := env.scheme.Get(ctx, approver1Actor, item.SchemeItemID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	want := workflow.Targets(workflow.KindSchemeItem, workflow.StatusWaitingForApproval, approver1Actor.RoleSet())
	if len(want) == 0 || len(got.AllowedTransitions) != len(want) {
		t.Fatalf("期望可迁移状态 %v，实际 %v", want, got.AllowedTransitions)
	}
	for _, to := range got.AllowedTransitions {
		if !workflow.CanMove(workflow.KindSchemeItem, item.Status, to, approver1Actor.RoleSet()) {
			t.Errorf("返回了不可迁移的状态 %s", to)
		}
	}

	viewed, err := env.scheme.Get(ctx, viewerActor, item.SchemeItemID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(viewed.AllowedTransitions) != 0 || len(viewed.AllowedMappingTransitions) != 0 {
		t.Errorf("只读角色不应有可迁移状态，实际 %v / %v", viewed.AllowedTransitions, viewed.AllowedMappingTransitions)
	}
}

func TestGet_InvalidAndMissingID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.scheme.Get(ctx, viewerActor, "not-a-uuid")
	requirePrecondition(t, err)

	_, err = env.scheme.Get(ctx, viewerActor, "00000000-0000-0000-0000-000000000004")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("期望 NotFound，实际: %v", err)
	}
}

func TestList_FiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	for _, code := range []string{"CS101", "CS102", "CS103"} {
		env.insert(t, code, 1, workflow.StatusDraft)
	}
	env.insert(t, "CS201", 2, workflow.StatusApproved)

	sem := 1
	req := &dto.SchemeItemListRequest{RegulationID: env.f.Regulation.RegulationID, ProgrammeID: env.f.Programme.ProgrammeID, Semester: &sem}
	req.Page, req.PageSize = 1, 2
	items, total, err := env.scheme.List(context.Background(), viewerActor, req)
	if err != nil {
		t.Fatalf("列表查询失败: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("期望总数 3、本页 2 条，实际 %d/%d", total, len(items))
	}
	if items[0].Code != "CS101" {
		t.Errorf("期望按代码排序，首条为 %s", items[0].Code)
	}
}

// ────────────────────── Delete ──────────────────────

func TestDelete_Rules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.insert(t, "CS101", 1, workflow.StatusDraft)
	dependent := env.f.Item("CS201", 2)
	dependent.Prerequisites = datatypes.JSONSlice[string]{base.SchemeItemID}
	env.f.Insert(t, env.db, dependent)
	approved := env.insert(t, "CS301", 3, workflow.StatusApproved)

	_, err := env.scheme.Delete(ctx, facultyActor, base.SchemeItemID)
	requirePrecondition(t, err)

	_, err = env.scheme.Delete(ctx, facultyActor, approved.SchemeItemID)
	requirePrecondition(t, err)

	_, err = env.scheme.Delete(ctx, approver1Actor, dependent.SchemeItemID)
	requireForbidden(t, err)

	msg, err := env.scheme.Delete(ctx, facultyActor, dependent.SchemeItemID)
	if err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if msg != "Scheme item CS201 deleted" {
		t.Errorf("删除消息不符: %q", msg)
	}
	if _, err := env.scheme.Get(ctx, viewerActor, dependent.SchemeItemID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("删除后应查询不到，实际: %v", err)
	}

	// 依赖移除后先修课可删除
	if _, err := env.scheme.Delete(ctx, facultyActor, base.SchemeItemID); err != nil {
		t.Fatalf("删除先修课失败: %v", err)
	}
}

func TestDelete_FrozenSemester(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS201", 2, workflow.StatusDraft)
	if err := env.repo.Scope.SetFrozenSemesters(ctx, env.f.Regulation.RegulationID, env.f.Programme.ProgrammeID, model.IntArray{2}, "seed"); err != nil {
		t.Fatalf("冻结学期失败: %v", err)
	}

	_, err := env.scheme.Delete(ctx, facultyActor, item.SchemeItemID)
	requirePrecondition(t, err)

	if _, err := env.scheme.Delete(ctx, adminActor, item.SchemeItemID); err != nil {
		t.Fatalf("管理员删除失败: %v", err)
	}
}

// ────────────────────── 状态变更 ──────────────────────

// 场景 C：提交审批合法，越级确认被拒绝
func TestChangeStatus_SubmitAndSkip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	_, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusConfirmed, "", item.SchemeItemID))
	var te *pkgerrors.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("期望 TransitionError，实际: %v", err)
	}
	if len(te.Codes) != 1 || te.Codes[0] != "CS101" {
		t.Errorf("期望违规代码 [CS101]，实际 %v", te.Codes)
	}

	resp, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", item.SchemeItemID))
	if err != nil {
		t.Fatalf("提交审批失败: %v", err)
	}
	if resp.Updated != 1 {
		t.Errorf("期望更新 1 条，实际 %d", resp.Updated)
	}
	got := env.reload(t, item.SchemeItemID)
	if got.Status != workflow.StatusWaitingForApproval || got.Version != 2 {
		t.Errorf("期望 WAITING_FOR_APPROVAL v2，实际 %s v%d", got.Status, got.Version)
	}
	if !env.notifier.has(EventStatusChanged) {
		t.Error("期望发出 status_changed 事件")
	}
}

// 场景 E：批量中有一项不合法则整批不变
func TestChangeStatus_BatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []string
	for _, code := range []string{"CS101", "CS102", "CS103", "CS104"} {
		ids = append(ids, env.insert(t, code, 1, workflow.StatusDraft).SchemeItemID)
	}
	waiting := env.insert(t, "CS105", 1, workflow.StatusWaitingForApproval)
	ids = append(ids, waiting.SchemeItemID)

	_, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", ids...))
	var te *pkgerrors.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("期望 TransitionError，实际: %v", err)
	}
	if len(te.Codes) != 1 || te.Codes[0] != "CS105" {
		t.Errorf("期望违规代码 [CS105]，实际 %v", te.Codes)
	}
	for _, id := range ids[:4] {
		got := env.reload(t, id)
		if got.Status != workflow.StatusDraft || got.Version != 1 {
			t.Errorf("%s 不应被修改，实际 %s v%d", got.Code, got.Status, got.Version)
		}
	}
	if env.audit.count() != 0 {
		t.Error("被拒绝的批量操作不应产生审计记录")
	}
}

func TestChangeStatus_RequestedChangesReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusWaitingForApproval)

	_, err := env.scheme.ChangeStatus(ctx, approver1Actor, env.statusReq(workflow.StatusRequestedChanges, "  ", item.SchemeItemID))
	requireValidationContains(t, err, "A reason is required")

	if _, err := env.scheme.ChangeStatus(ctx, approver1Actor, env.statusReq(workflow.StatusRequestedChanges, "credits too high", item.SchemeItemID)); err != nil {
		t.Fatalf("退回修改失败: %v", err)
	}
	if got := env.reload(t, item.SchemeItemID); got.StatusReason != "credits too high" {
		t.Errorf("期望记录退回原因，实际 %q", got.StatusReason)
	}

	if _, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "ignored", item.SchemeItemID)); err != nil {
		t.Fatalf("重新提交失败: %v", err)
	}
	if got := env.reload(t, item.SchemeItemID); got.StatusReason != "" {
		t.Errorf("离开 REQUESTED_CHANGES 后原因应清空，实际 %q", got.StatusReason)
	}
}

func TestChangeStatus_UnknownIDsAndStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	_, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq("PUBLISHED", "", item.SchemeItemID))
	requirePrecondition(t, err)

	_, err = env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", item.SchemeItemID, "00000000-0000-0000-0000-000000000005"))
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("期望 NotFound，实际: %v", err)
	}

	_, err = env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, ""))
	requireValidationContains(t, err, "At least one scheme item")
}

func TestChangeStatus_FullApprovalChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	steps := []struct {
		actor dto.Actor
		to    string
	}{
		{facultyActor, workflow.StatusWaitingForApproval},
		{approver1Actor, workflow.StatusApproved},
		{approver2Actor, workflow.StatusConfirmed},
	}
	for _, st := range steps {
		if _, err := env.scheme.ChangeStatus(ctx, st.actor, env.statusReq(st.to, "", item.SchemeItemID)); err != nil {
			t.Fatalf("%s 迁移到 %s 失败: %v", st.actor.UserID, st.to, err)
		}
	}
	if got := env.reload(t, item.SchemeItemID); got.Status != workflow.StatusConfirmed {
		t.Errorf("期望 CONFIRMED，实际 %s", got.Status)
	}
}

// blockingAudit 第一次记录时阻塞，直到测试放行
type blockingAudit struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (a *blockingAudit) Record(string, string, dto.Actor, string) {
	a.once.Do(func() {
		close(a.entered)
		<-a.release
	})
}

// 场景 B：同一作用域的第二个调用只能在第一个调用完成后看到其提交结果
func TestChangeStatus_SameScopeSerialized(t *testing.T) {
	audit := &blockingAudit{entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnvWithAudit(t, audit)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	first := make(chan error, 1)
	go func() {
		_, err := env.scheme.ChangeStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", item.SchemeItemID))
		first <- err
	}()
	<-audit.entered

	second := make(chan error, 1)
	go func() {
		_, err := env.scheme.ChangeStatus(ctx, approver1Actor, env.statusReq(workflow.StatusApproved, "", item.SchemeItemID))
		second <- err
	}()

	select {
	case err := <-second:
		t.Fatalf("第一个调用持锁期间第二个调用不应完成，实际返回: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(audit.release)
	if err := <-first; err != nil {
		t.Fatalf("第一个调用失败: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("第二个调用应看到 WAITING_FOR_APPROVAL 并成功: %v", err)
	}
	if got := env.reload(t, item.SchemeItemID); got.Status != workflow.StatusApproved {
		t.Errorf("期望 APPROVED，实际 %s", got.Status)
	}
	if env.locks.Held() != 0 {
		t.Errorf("锁应全部释放，实际仍持有 %d", env.locks.Held())
	}
}

// ────────────────────── 课程目标与映射 ──────────────────────

func TestUpdateCourseOutcomes_WeightSum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.insert(t, "CS101", 1, workflow.StatusDraft)

	_, err := env.scheme.UpdateCourseOutcomes(ctx, facultyActor, item.SchemeItemID, &dto.UpdateCourseOutcomesRequest{
		Outcomes: map[string]dto.CourseOutcomeInput{
			"CO1": {Description: "Explain", Taxonomy: []string{"Understand"}, Weight: 0.5},
			"CO2": {Description: "Build", Taxonomy: []string{"Apply"}, Weight: 0.4},
		},
		Version: 1,
	})
	requireValidationContains(t, err, "must sum to 1, got 0.90")

	resp, err := env.scheme.UpdateCourseOutcomes(ctx, facultyActor, item.SchemeItemID, &dto.UpdateCourseOutcomesRequest{
		Outcomes: map[string]dto.CourseOutcomeInput{
			"CO1": {Description: "Explain", Taxonomy: []string{"Understand"}, Weight: 0.33},
			"CO2": {Description: "Build", Taxonomy: []string{"Apply"}, Weight: 0.33},
			"CO3": {Description: "Assess", Taxonomy: []string{"Evaluate"}, Weight: 0.34},
		},
		Version: 1,
	})
	if err != nil {
		t.Fatalf("更新课程目标失败: %v", err)
	}
	if len(resp.CourseOutcomes) != 3 || resp.Version != 2 {
		t.Errorf("期望 3 个课程目标且版本 2，实际 %d v%d", len(resp.CourseOutcomes), resp.Version)
	}
}

func TestUpdateCourseOutcomes_PrunesMapping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.f.Item("CS101", 1)
	item.CourseOutcomes = datatypes.NewJSONType(model.CourseOutcomes{
		"CO1": {Description: "a", Weight: 0.5},
		"CO2": {Description: "b", Weight: 0.5},
	})
	item.OutcomeMapping = datatypes.NewJSONType(model.OutcomeMapping{
		"PO1": {"CO1": "LOW", "CO2": "STRONG"},
		"PO2": {"CO2": "MEDIUM"},
	})
	env.f.Insert(t, env.db, item)

	resp, err := env.scheme.UpdateCourseOutcomes(ctx, facultyActor, item.SchemeItemID, &dto.UpdateCourseOutcomesRequest{
		Outcomes: map[string]dto.CourseOutcomeInput{"CO1": {Description: "a", Weight: 1}},
		Version:  1,
	})
	if err != nil {
		t.Fatalf("更新课程目标失败: %v", err)
	}
	if len(resp.OutcomeMapping) != 1 || resp.OutcomeMapping["PO1"]["CO1"] != "LOW" {
		t.Errorf("删除的 CO 应移出映射，实际 %v", resp.OutcomeMapping)
	}
}

func confirmedItemWithOutcomes(t *testing.T, env *testEnv, code string) *model.SchemeItem {
	t.Helper()
	item := env.f.Item(code, 1)
	item.Status = workflow.StatusConfirmed
	item.CourseOutcomes = datatypes.NewJSONType(model.CourseOutcomes{
		"CO1": {Description: "a", Weight: 0.5},
		"CO2": {Description: "b", Weight: 0.5},
	})
	return env.f.Insert(t, env.db, item)
}

func TestUpdateOutcomeMapping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.insert(t, "CS100", 1, workflow.StatusDraft)
	_, err := env.scheme.UpdateOutcomeMapping(ctx, facultyActor, draft.SchemeItemID, &dto.UpdateOutcomeMappingRequest{
		Mapping: map[string]map[string]string{"PO1": {"CO1": "LOW"}},
		Version: 1,
	})
	requireValidationContains(t, err, "CONFIRMED")

	item := confirmedItemWithOutcomes(t, env, "CS101")
	_, err = env.scheme.UpdateOutcomeMapping(ctx, facultyActor, item.SchemeItemID, &dto.UpdateOutcomeMappingRequest{
		Mapping: map[string]map[string]string{"PO9": {"CO1": "LOW"}, "PO1": {"CO7": "HIGH"}},
		Version: 1,
	})
	var ve *pkgerrors.ValidationError
	if !errors.As(err, &ve) || len(ve.Messages) < 3 {
		t.Fatalf("期望至少 3 条映射错误，实际: %v", err)
	}

	resp, err := env.scheme.UpdateOutcomeMapping(ctx, facultyActor, item.SchemeItemID, &dto.UpdateOutcomeMappingRequest{
		Mapping: map[string]map[string]string{"PO1": {"CO1": "STRONG"}, "PSO1": {"CO2": "LOW"}},
		Version: 1,
	})
	if err != nil {
		t.Fatalf("更新映射失败: %v", err)
	}
	if resp.OutcomeMapping["PSO1"]["CO2"] != "LOW" {
		t.Errorf("映射未写入: %v", resp.OutcomeMapping)
	}
}

func TestChangeMappingStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.insert(t, "CS100", 1, workflow.StatusDraft)
	_, err := env.scheme.ChangeMappingStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", draft.SchemeItemID))
	var te *pkgerrors.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("未确认课程的映射不能提交，期望 TransitionError，实际: %v", err)
	}

	item := confirmedItemWithOutcomes(t, env, "CS101")
	if _, err := env.scheme.ChangeMappingStatus(ctx, facultyActor, env.statusReq(workflow.StatusWaitingForApproval, "", item.SchemeItemID)); err != nil {
		t.Fatalf("提交映射失败: %v", err)
	}
	// 审批人只能审批映射
	_, err = env.scheme.ChangeMappingStatus(ctx, approver1Actor, env.statusReq(workflow.StatusApproved, "", item.SchemeItemID))
	if !errors.As(err, &te) {
		t.Fatalf("scheme_approver_1 不能审批映射，实际: %v", err)
	}
	if _, err := env.scheme.ChangeMappingStatus(ctx, outcomeActor, env.statusReq(workflow.StatusApproved, "", item.SchemeItemID)); err != nil {
		t.Fatalf("映射审批失败: %v", err)
	}

	got := env.reload(t, item.SchemeItemID)
	if got.MappingStatus != workflow.StatusApproved || got.Status != workflow.StatusConfirmed {
		t.Errorf("期望课程 CONFIRMED、映射 APPROVED，实际 %s/%s", got.Status, got.MappingStatus)
	}

	// 映射已批准后课程目标不可再改
	_, err = env.scheme.UpdateCourseOutcomes(ctx, facultyActor, item.SchemeItemID, &dto.UpdateCourseOutcomesRequest{
		Outcomes: map[string]dto.CourseOutcomeInput{"CO1": {Description: "a", Weight: 1}},
		Version:  got.Version,
	})
	requirePrecondition(t, err)
}
