package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
	pkgerrors "regulations/backend/pkg/errors"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SchemeCandidate 待校验的课程及其开课部门定位信息
type SchemeCandidate struct {
	Item               *model.SchemeItem
	DepartmentName     string
	DepartmentCategory string
}

// categoryPartitions 课程类别分区（由 course_category 属性标记推导）
type categoryPartitions struct {
	known               map[string]bool
	nonSemester         map[string]bool // N
	semesterPlaceholder map[string]bool // S
	verticalAllowed     map[string]bool // V
	placeholderAllowed  map[string]bool // P
	forbidden           map[string]bool // F：无学期时禁止方向/占位
}

func newCategoryPartitions(attrs []model.Attribute) *categoryPartitions {
	p := &categoryPartitions{
		known:               make(map[string]bool, len(attrs)),
		nonSemester:         make(map[string]bool),
		semesterPlaceholder: make(map[string]bool),
		verticalAllowed:     make(map[string]bool),
		placeholderAllowed:  make(map[string]bool),
		forbidden:           make(map[string]bool),
	}
	for _, a := range attrs {
		p.known[a.Value] = true
		p.nonSemester[a.Value] = a.NonSemester
		p.semesterPlaceholder[a.Value] = a.SemesterPlaceholder
		p.verticalAllowed[a.Value] = a.VerticalAllowed
		p.placeholderAllowed[a.Value] = a.PlaceholderAllowed
		p.forbidden[a.Value] = a.VerticalPlaceholderForbidden
	}
	return p
}

// exempt 类别属于 N ∪ S（同时也是先修课排除集）
func (p *categoryPartitions) exempt(category string) bool {
	return p.nonSemester[category] || p.semesterPlaceholder[category]
}

// validationContext 一次校验所需的全部只读数据
type validationContext struct {
	regulation        *model.Regulation
	scope             *model.RegulationProgramme
	categories        *categoryPartitions
	courseTypes       map[string]bool
	creditPattern     *model.CreditPattern
	evaluationPattern *model.EvaluationPattern
	department        *model.Department
	codeMatches       []model.SchemeItem
	prerequisites     map[string]model.SchemeItem
	siblings          []model.SchemeItem // 仅更新时加载：同作用域的其他课程
}

// SchemeValidator 课程结构与业务规则校验（只读）
type SchemeValidator struct {
	repo *repository.Repository
}

// NewSchemeValidator 创建校验器
func NewSchemeValidator(repo *repository.Repository) *SchemeValidator {
	return &SchemeValidator{repo: repo}
}

// Validate 按固定顺序执行全部规则，返回聚合的违规信息（空切片表示通过）
//
// 法规不存在/未批准、专业未注册属于致命前置条件，直接以 error 返回。
// 通过校验后会回填 candidate.Item.OfferingDepartmentID。
func (v *SchemeValidator) Validate(ctx context.Context, c *SchemeCandidate, privileged bool) ([]string, error) {
	item := c.Item

	vc, err := v.load(ctx, c)
	if err != nil {
		return nil, err
	}

	// ── 1. 法规存在且已批准（致命）──
	if vc.regulation == nil {
		return nil, pkgerrors.Precondition("regulation %s does not exist", item.RegulationID)
	}
	if vc.regulation.Status != model.RegulationApproved {
		return nil, pkgerrors.Precondition("regulation %s is not approved", vc.regulation.Name)
	}

	// ── 2. 专业已注册到法规（致命）──
	if vc.scope == nil || vc.scope.Programme == nil {
		return nil, pkgerrors.Precondition("programme %s is not registered under regulation %s", item.ProgrammeID, vc.regulation.Name)
	}

	var msgs []string
	add := func(format string, args ...interface{}) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	}
	cats := vc.categories
	cat := item.Category

	// ── 3. 课程代码格式 ──
	if !codePattern.MatchString(item.Code) {
		add("Course code %q must contain only letters, digits and underscores", item.Code)
	}

	// ── 4. 类别与方向/占位互斥 ──
	if !cats.known[cat] {
		add("Category %q is not a course category", cat)
	}
	if item.IsVertical && item.IsPlaceholder {
		add("Is Vertical and Is Placeholder cannot both be set to YES")
	}
	if item.IsVertical && cats.known[cat] && !cats.verticalAllowed[cat] {
		add("Category %q does not allow vertical courses", cat)
	}
	if item.IsPlaceholder && cats.known[cat] && !cats.placeholderAllowed[cat] {
		add("Category %q does not allow placeholder courses", cat)
	}

	// ── 5. 学期可空性 ──
	if cats.known[cat] {
		if item.Semester == nil {
			switch {
			case !cats.exempt(cat):
				add("Semester is required for category %q", cat)
			case (item.IsPlaceholder || item.IsVertical) && cats.forbidden[cat]:
				add("Category %q without a semester cannot be vertical or placeholder", cat)
			case item.IsPlaceholder && cats.semesterPlaceholder[cat]:
				add("Semester is required for placeholder courses in category %q", cat)
			}
		} else {
			switch {
			case cats.nonSemester[cat]:
				add("Semester must be empty for category %q", cat)
			case cats.semesterPlaceholder[cat] && !item.IsPlaceholder:
				add("Is Placeholder must be set to YES for category %q when a semester is given", cat)
			}
		}
	}

	// ── 6. 一学年课程 ──
	if item.IsOneYear && cats.exempt(cat) {
		add("One-year courses are not allowed in category %q", cat)
	}

	// ── 7. 方向名称 ──
	if item.IsVertical {
		switch {
		case item.VerticalName == nil || *item.VerticalName == "":
			add("Vertical name is required for vertical courses")
		case !vc.scope.HasVertical(*item.VerticalName):
			add("Vertical %q is not defined for the programme", *item.VerticalName)
		}
	}

	// ── 8. 学期范围与冻结 ──
	if item.Semester != nil {
		sem := *item.Semester
		if maxSem := vc.scope.Programme.MaxSemester(); sem < 1 || sem > maxSem {
			add("Semester %d is out of range, must be between 1 and %d", sem, maxSem)
		}
		if vc.scope.FrozenSemesters.Contains(sem) && !privileged {
			add("Semester %d is frozen", sem)
		}
	}

	// ── 9. 代码唯一性 ──
	if !codeIsUnique(item, vc.codeMatches) {
		add("Course code %s already exists in this scope for the same semester", item.Code)
	}

	// ── 10. 非占位课的参考数据 ──
	if !item.IsPlaceholder {
		msgs = append(msgs, v.checkReferences(c, vc)...)
	}

	// ── 11. 先修课（含引用本课程的后续课程）──
	msgs = append(msgs, checkPrerequisites(item, vc)...)
	msgs = append(msgs, checkDependents(item, vc)...)

	return msgs, nil
}

// codeIsUnique 比较集合 = 候选项 ∪ 已持久化的匹配项（按 ID 去重）
// 集合少于两个成员即唯一；更新时候选项自身的持久化记录与候选项合并为同一成员
func codeIsUnique(item *model.SchemeItem, matches []model.SchemeItem) bool {
	candidateID := item.SchemeItemID
	if candidateID == "" {
		candidateID = "new"
	}
	ids := map[string]struct{}{candidateID: {}}
	for _, m := range matches {
		ids[m.SchemeItemID] = struct{}{}
	}
	return len(ids) < 2
}

func (v *SchemeValidator) checkReferences(c *SchemeCandidate, vc *validationContext) []string {
	item := c.Item
	var msgs []string
	add := func(format string, args ...interface{}) {
		msgs = append(msgs, fmt.Sprintf(format, args...))
	}

	if item.Type == nil || *item.Type == "" {
		add("Type is required for non-placeholder courses")
	} else if !vc.courseTypes[*item.Type] {
		add("Type %q is not a course type", *item.Type)
	}

	switch {
	case item.CreditPatternID == nil || *item.CreditPatternID == "":
		add("Credit pattern is required for non-placeholder courses")
	case vc.creditPattern == nil || vc.creditPattern.RegulationID != item.RegulationID:
		add("Credit pattern %s is not defined for the regulation", *item.CreditPatternID)
	}

	switch {
	case item.EvaluationPatternID == nil || *item.EvaluationPatternID == "":
		add("Evaluation pattern is required for non-placeholder courses")
	case vc.evaluationPattern == nil || vc.evaluationPattern.RegulationID != item.RegulationID:
		add("Evaluation pattern %s is not defined for the regulation", *item.EvaluationPatternID)
	case item.Type != nil && vc.evaluationPattern.CourseType != *item.Type:
		add("Evaluation pattern %s is for course type %q, not %q", vc.evaluationPattern.Name, vc.evaluationPattern.CourseType, *item.Type)
	}

	switch {
	case c.DepartmentName == "" || c.DepartmentCategory == "":
		add("Offering department is required for non-placeholder courses")
	case vc.department == nil || !vc.department.IsActive:
		add("Offering department %s (%s) does not exist or is inactive", c.DepartmentName, c.DepartmentCategory)
	default:
		item.OfferingDepartmentID = &vc.department.DepartmentID
	}
	return msgs
}

func checkPrerequisites(item *model.SchemeItem, vc *validationContext) []string {
	if len(item.Prerequisites) == 0 {
		return nil
	}
	if item.IsPlaceholder || (item.Semester != nil && *item.Semester == 1) {
		return []string{"Prerequisites are not allowed for semester 1 or placeholder courses"}
	}

	var invalid, notEarlier []string
	for _, id := range item.Prerequisites {
		pre, ok := vc.prerequisites[id]
		switch {
		case !ok || id == item.SchemeItemID:
			invalid = append(invalid, id)
		case pre.RegulationID != item.RegulationID || pre.ProgrammeID != item.ProgrammeID,
			pre.IsPlaceholder, vc.categories.exempt(pre.Category):
			invalid = append(invalid, pre.Code)
		case item.Semester != nil && (pre.Semester == nil || *pre.Semester >= *item.Semester):
			notEarlier = append(notEarlier, pre.Code)
		}
	}

	var msgs []string
	if len(invalid) > 0 {
		msgs = append(msgs, "invalid prerequisite course codes: "+strings.Join(invalid, ", "))
	}
	if len(notEarlier) > 0 {
		msgs = append(msgs, "prerequisites must be from an earlier semester: "+strings.Join(notEarlier, ", "))
	}
	return msgs
}

// checkDependents 更新后本课程仍须是其后续课程的合法先修课，且先修关系不成环
func checkDependents(item *model.SchemeItem, vc *validationContext) []string {
	if item.SchemeItemID == "" || len(vc.siblings) == 0 {
		return nil
	}

	var invalidFor, notEarlierFor []string
	for _, d := range vc.siblings {
		if !containsID(d.Prerequisites, item.SchemeItemID) {
			continue
		}
		switch {
		case item.IsPlaceholder, vc.categories.exempt(item.Category):
			invalidFor = append(invalidFor, d.Code)
		case d.Semester != nil && (item.Semester == nil || *item.Semester >= *d.Semester):
			notEarlierFor = append(notEarlierFor, d.Code)
		}
	}

	var msgs []string
	if len(invalidFor) > 0 {
		msgs = append(msgs, fmt.Sprintf("invalid prerequisite course codes: %s (required by %s)", item.Code, strings.Join(invalidFor, ", ")))
	}
	if len(notEarlierFor) > 0 {
		msgs = append(msgs, fmt.Sprintf("prerequisites must be from an earlier semester: %s (required by %s)", item.Code, strings.Join(notEarlierFor, ", ")))
	}
	if cyclic := prerequisiteCycle(item, vc.siblings); len(cyclic) > 0 {
		msgs = append(msgs, "prerequisites would form a cycle: "+strings.Join(cyclic, ", "))
	}
	return msgs
}

// prerequisiteCycle 返回经由先修链回到 item 自身的直接先修课代码
func prerequisiteCycle(item *model.SchemeItem, siblings []model.SchemeItem) []string {
	byID := make(map[string]*model.SchemeItem, len(siblings))
	for i := range siblings {
		byID[siblings[i].SchemeItemID] = &siblings[i]
	}

	var reaches func(id string, seen map[string]bool) bool
	reaches = func(id string, seen map[string]bool) bool {
		if id == item.SchemeItemID {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		node, ok := byID[id]
		if !ok {
			return false
		}
		for _, next := range node.Prerequisites {
			if reaches(next, seen) {
				return true
			}
		}
		return false
	}

	var codes []string
	for _, pre := range item.Prerequisites {
		node, ok := byID[pre]
		if !ok {
			continue
		}
		if reaches(pre, map[string]bool{}) {
			codes = append(codes, node.Code)
		}
	}
	return codes
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// load 并发读取校验所需的参考数据，未找到的记录保留为 nil
func (v *SchemeValidator) load(ctx context.Context, c *SchemeCandidate) (*validationContext, error) {
	item := c.Item
	vc := &validationContext{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reg, err := v.repo.Regulation.GetByID(gctx, item.RegulationID)
		vc.regulation = reg
		return ignoreNotFound(err)
	})
	g.Go(func() error {
		rp, err := v.repo.Scope.Get(gctx, item.RegulationID, item.ProgrammeID)
		vc.scope = rp
		return ignoreNotFound(err)
	})
	g.Go(func() error {
		attrs, err := v.repo.Attribute.ListByKind(gctx, model.AttributeCourseCategory)
		vc.categories = newCategoryPartitions(attrs)
		return err
	})
	g.Go(func() error {
		attrs, err := v.repo.Attribute.ListByKind(gctx, model.AttributeCourseType)
		vc.courseTypes = make(map[string]bool, len(attrs))
		for _, a := range attrs {
			vc.courseTypes[a.Value] = true
		}
		return err
	})
	g.Go(func() error {
		matches, err := v.repo.SchemeItem.FindCodeMatches(gctx, repository.CodeMatch{
			RegulationID:  item.RegulationID,
			ProgrammeID:   item.ProgrammeID,
			Code:          item.Code,
			Semester:      item.Semester,
			IsPlaceholder: item.IsPlaceholder,
			IsOneYear:     item.IsOneYear,
		})
		vc.codeMatches = matches
		return err
	})
	if !item.IsPlaceholder {
		if item.CreditPatternID != nil && *item.CreditPatternID != "" {
			g.Go(func() error {
				cp, err := v.repo.CreditPattern.GetByID(gctx, *item.CreditPatternID)
				vc.creditPattern = cp
				return ignoreNotFound(err)
			})
		}
		if item.EvaluationPatternID != nil && *item.EvaluationPatternID != "" {
			g.Go(func() error {
				ep, err := v.repo.EvaluationPattern.GetByID(gctx, *item.EvaluationPatternID)
				vc.evaluationPattern = ep
				return ignoreNotFound(err)
			})
		}
		if c.DepartmentName != "" && c.DepartmentCategory != "" {
			g.Go(func() error {
				dept, err := v.repo.Department.GetByNameAndCategory(gctx, c.DepartmentName, c.DepartmentCategory)
				vc.department = dept
				return ignoreNotFound(err)
			})
		}
	}
	if item.SchemeItemID != "" {
		g.Go(func() error {
			all, err := v.repo.SchemeItem.ListByScope(gctx, item.RegulationID, item.ProgrammeID)
			for _, sib := range all {
				if sib.SchemeItemID != item.SchemeItemID {
					vc.siblings = append(vc.siblings, sib)
				}
			}
			return err
		})
	}
	if len(item.Prerequisites) > 0 {
		g.Go(func() error {
			pres, err := v.repo.SchemeItem.ListByIDs(gctx, item.Prerequisites)
			vc.prerequisites = make(map[string]model.SchemeItem, len(pres))
			for _, p := range pres {
				vc.prerequisites[p.SchemeItemID] = p
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, pkgerrors.PersistenceFailed(err)
	}
	return vc, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
