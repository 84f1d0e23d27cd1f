package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
	"regulations/backend/internal/workflow"
	pkgerrors "regulations/backend/pkg/errors"
	"regulations/backend/pkg/scopelock"
)

const tracerName = "regulations/backend/internal/service"

// SchemeService 教学计划课程生命周期编排
//
// 所有写操作遵循同一流程：权限 → 作用域锁 → 重新读取并校验 → 状态机检查 →
// 单事务写入 → 审计与通知（尽力而为）→ 释放锁。
type SchemeService interface {
	Create(ctx context.Context, actor dto.Actor, req *dto.SchemeItemRequest) (*dto.SchemeItemResponse, error)
	Update(ctx context.Context, actor dto.Actor, id string, req *dto.SchemeItemRequest) (*dto.SchemeItemResponse, error)
	Delete(ctx context.Context, actor dto.Actor, id string) (string, error)
	Get(ctx context.Context, actor dto.Actor, id string) (*dto.SchemeItemResponse, error)
	List(ctx context.Context, actor dto.Actor, req *dto.SchemeItemListRequest) ([]dto.SchemeItemResponse, int64, error)
	// ChangeStatus 批量变更课程状态，任一课程不符合迁移条件则整批拒绝
	ChangeStatus(ctx context.Context, actor dto.Actor, req *dto.StatusChangeRequest) (*dto.StatusChangeResponse, error)
	// ChangeMappingStatus 批量变更 CO-PO 映射状态，课程须已确认
	ChangeMappingStatus(ctx context.Context, actor dto.Actor, req *dto.StatusChangeRequest) (*dto.StatusChangeResponse, error)
	UpdateCourseOutcomes(ctx context.Context, actor dto.Actor, id string, req *dto.UpdateCourseOutcomesRequest) (*dto.SchemeItemResponse, error)
	UpdateOutcomeMapping(ctx context.Context, actor dto.Actor, id string, req *dto.UpdateOutcomeMappingRequest) (*dto.SchemeItemResponse, error)
}

type schemeService struct {
	repo      *repository.Repository
	gateway   *repository.Gateway
	locks     *scopelock.Coordinator
	validator *SchemeValidator
	audit     AuditSink
	notifier  Notifier
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewSchemeService 创建 SchemeService 实例
func NewSchemeService(
	repo *repository.Repository,
	gateway *repository.Gateway,
	locks *scopelock.Coordinator,
	audit AuditSink,
	notifier Notifier,
	logger *zap.Logger,
) SchemeService {
	return &schemeService{
		repo:      repo,
		gateway:   gateway,
		locks:     locks,
		validator: NewSchemeValidator(repo),
		audit:     audit,
		notifier:  notifier,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *schemeService) Create(ctx context.Context, actor dto.Actor, req *dto.SchemeItemRequest) (resp *dto.SchemeItemResponse, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.Create", req.RegulationID, req.ProgrammeID)
	defer func() { s.endSpan(span, "create", err) }()

	roles := actor.RoleSet()
	if err := authorize(workflow.ActionCreateItem, roles); err != nil {
		return nil, err
	}
	if err := checkIDs(req.RegulationID, req.ProgrammeID); err != nil {
		return nil, err
	}

	key := scopelock.ScopeKey(req.RegulationID, req.ProgrammeID)
	item, err := scopelock.Do(s.locks, key, func() (*model.SchemeItem, error) {
		item := &model.SchemeItem{
			RegulationID:  req.RegulationID,
			ProgrammeID:   req.ProgrammeID,
			Status:        workflow.StatusDraft,
			MappingStatus: workflow.StatusDraft,
			Version:       1,
		}
		applyRequest(item, req)
		item.CreatedBy = &actor.UserID
		item.UpdatedBy = &actor.UserID

		if err := s.validate(ctx, item, req, roles.Privileged()); err != nil {
			return nil, err
		}

		err := s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			return pkgerrors.PersistenceFailed(tx.SchemeItem.Create(ctx, item))
		})
		if err != nil {
			return nil, err
		}

		s.audit.Record(string(workflow.KindSchemeItem), "create", actor, fmt.Sprintf("created scheme item %s", item.Code))
		s.notifier.Notify(ctx, EventItemCreated, itemEvent(item))
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return toSchemeItemResponse(item), nil
}

// ────────────────────── Update ──────────────────────

func (s *schemeService) Update(ctx context.Context, actor dto.Actor, id string, req *dto.SchemeItemRequest) (resp *dto.SchemeItemResponse, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.Update", req.RegulationID, req.ProgrammeID)
	defer func() { s.endSpan(span, "update", err) }()

	roles := actor.RoleSet()
	if err := authorize(workflow.ActionUpdateItem, roles); err != nil {
		return nil, err
	}

	// 先读取课程以确定作用域
	current, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.RegulationID != req.RegulationID || current.ProgrammeID != req.ProgrammeID {
		return nil, pkgerrors.Precondition("scheme item %s cannot be moved to another regulation or programme", current.Code)
	}

	key := scopelock.ScopeKey(current.RegulationID, current.ProgrammeID)
	item, err := scopelock.Do(s.locks, key, func() (*model.SchemeItem, error) {
		item, err := s.loadItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.Version != 0 && req.Version != item.Version {
			return nil, pkgerrors.ErrOptimisticLock
		}
		if !workflow.EditableStatus(item.Status) {
			return nil, pkgerrors.Precondition("scheme item %s is %s and can only be edited in DRAFT or REQUESTED_CHANGES", item.Code, item.Status)
		}

		previousSemester := item.Semester
		applyRequest(item, req)
		item.UpdatedBy = &actor.UserID

		if err := s.validate(ctx, item, req, roles.Privileged()); err != nil {
			return nil, err
		}
		// 已在冻结学期的课程不能移出
		if previousSemester != nil && !roles.Privileged() {
			if err := s.checkNotFrozen(ctx, item.RegulationID, item.ProgrammeID, *previousSemester); err != nil {
				return nil, err
			}
		}

		err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			return pkgerrors.PersistenceFailed(tx.SchemeItem.Update(ctx, item))
		})
		if err != nil {
			return nil, err
		}

		s.audit.Record(string(workflow.KindSchemeItem), "update", actor, fmt.Sprintf("updated scheme item %s", item.Code))
		s.notifier.Notify(ctx, EventItemUpdated, itemEvent(item))
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return toSchemeItemResponse(item), nil
}

// ────────────────────── Delete ──────────────────────

func (s *schemeService) Delete(ctx context.Context, actor dto.Actor, id string) (msg string, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.Delete", "", "")
	defer func() { s.endSpan(span, "delete", err) }()

	roles := actor.RoleSet()
	if err := authorize(workflow.ActionDeleteItem, roles); err != nil {
		return "", err
	}

	current, err := s.loadItem(ctx, id)
	if err != nil {
		return "", err
	}

	key := scopelock.ScopeKey(current.RegulationID, current.ProgrammeID)
	return scopelock.Do(s.locks, key, func() (string, error) {
		item, err := s.loadItem(ctx, id)
		if err != nil {
			return "", err
		}
		if item.Status != workflow.StatusDraft {
			return "", pkgerrors.Precondition("scheme item %s is %s, only DRAFT items can be deleted", item.Code, item.Status)
		}
		if item.Semester != nil && !roles.Privileged() {
			if err := s.checkNotFrozen(ctx, item.RegulationID, item.ProgrammeID, *item.Semester); err != nil {
				return "", err
			}
		}

		siblings, err := s.repo.SchemeItem.ListByScope(ctx, item.RegulationID, item.ProgrammeID)
		if err != nil {
			return "", pkgerrors.PersistenceFailed(err)
		}
		var dependents []string
		for _, sib := range siblings {
			for _, pre := range sib.Prerequisites {
				if pre == item.SchemeItemID {
					dependents = append(dependents, sib.Code)
					break
				}
			}
		}
		if len(dependents) > 0 {
			return "", pkgerrors.Precondition("scheme item %s is a prerequisite of %s", item.Code, strings.Join(dependents, ", "))
		}

		err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			return pkgerrors.PersistenceFailed(tx.SchemeItem.Delete(ctx, item.SchemeItemID))
		})
		if err != nil {
			return "", err
		}

		s.audit.Record(string(workflow.KindSchemeItem), "delete", actor, fmt.Sprintf("deleted scheme item %s", item.Code))
		s.notifier.Notify(ctx, EventItemDeleted, itemEvent(item))
		return fmt.Sprintf("Scheme item %s deleted", item.Code), nil
	})
}

// ────────────────────── Get / List ──────────────────────

func (s *schemeService) Get(ctx context.Context, actor dto.Actor, id string) (*dto.SchemeItemResponse, error) {
	if err := authorize(workflow.ActionViewSchemeItems, actor.RoleSet()); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toSchemeItemResponse(item)
	roles := actor.RoleSet()
	resp.AllowedTransitions = workflow.Targets(workflow.KindSchemeItem, item.Status, roles)
	resp.AllowedMappingTransitions = workflow.Targets(workflow.KindOutcomeMapping, item.MappingStatus, roles)
	return resp, nil
}

func (s *schemeService) List(ctx context.Context, actor dto.Actor, req *dto.SchemeItemListRequest) ([]dto.SchemeItemResponse, int64, error) {
	if err := authorize(workflow.ActionViewSchemeItems, actor.RoleSet()); err != nil {
		return nil, 0, err
	}

	items, total, err := s.repo.SchemeItem.List(ctx, repository.SchemeItemFilter{
		RegulationID:  req.RegulationID,
		ProgrammeID:   req.ProgrammeID,
		Semester:      req.Semester,
		Status:        req.Status,
		MappingStatus: req.MappingStatus,
		Offset:        req.GetOffset(),
		Limit:         req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, pkgerrors.PersistenceFailed(err)
	}

	result := make([]dto.SchemeItemResponse, 0, len(items))
	for i := range items {
		result = append(result, *toSchemeItemResponse(&items[i]))
	}
	return result, total, nil
}

// ────────────────────── 状态变更 ──────────────────────

// statusTarget 两类状态机在批量变更时的差异部分
type statusTarget struct {
	kind     workflow.EntityKind
	event    string
	current  func(*model.SchemeItem) string
	eligible func(*model.SchemeItem) bool
	apply    func(ctx context.Context, tx *repository.Repository, ids []string, to, reason, by string) (int64, error)
}

var itemStatusTarget = statusTarget{
	kind:     workflow.KindSchemeItem,
	event:    EventStatusChanged,
	current:  func(it *model.SchemeItem) string { return it.Status },
	eligible: func(*model.SchemeItem) bool { return true },
	apply: func(ctx context.Context, tx *repository.Repository, ids []string, to, reason, by string) (int64, error) {
		return tx.SchemeItem.UpdateStatus(ctx, ids, to, reason, by)
	},
}

var mappingStatusTarget = statusTarget{
	kind:     workflow.KindOutcomeMapping,
	event:    EventMappingStatusChanged,
	current:  func(it *model.SchemeItem) string { return it.MappingStatus },
	eligible: func(it *model.SchemeItem) bool { return it.Status == workflow.StatusConfirmed },
	apply: func(ctx context.Context, tx *repository.Repository, ids []string, to, reason, by string) (int64, error) {
		return tx.SchemeItem.UpdateMappingStatus(ctx, ids, to, reason, by)
	},
}

func (s *schemeService) ChangeStatus(ctx context.Context, actor dto.Actor, req *dto.StatusChangeRequest) (*dto.StatusChangeResponse, error) {
	return s.changeStatus(ctx, actor, req, itemStatusTarget)
}

func (s *schemeService) ChangeMappingStatus(ctx context.Context, actor dto.Actor, req *dto.StatusChangeRequest) (*dto.StatusChangeResponse, error) {
	return s.changeStatus(ctx, actor, req, mappingStatusTarget)
}

func (s *schemeService) changeStatus(ctx context.Context, actor dto.Actor, req *dto.StatusChangeRequest, target statusTarget) (resp *dto.StatusChangeResponse, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.ChangeStatus", req.RegulationID, req.ProgrammeID)
	span.SetAttributes(
		attribute.String("workflow.kind", string(target.kind)),
		attribute.String("workflow.to", req.To),
		attribute.Int("workflow.items", len(req.ItemIDs)),
	)
	defer func() { s.endSpan(span, "change_status", err) }()

	if !workflow.IsValidState(target.kind, req.To) {
		return nil, pkgerrors.Precondition("%s is not a valid %s status", req.To, target.kind)
	}
	reason := strings.TrimSpace(req.Reason)
	if workflow.RequiresReason(req.To) && reason == "" {
		return nil, pkgerrors.ValidationFailed("A reason is required when requesting changes")
	}
	if !workflow.RequiresReason(req.To) {
		reason = "" // 离开 REQUESTED_CHANGES 时清空原因
	}
	ids := uniqueStrings(req.ItemIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.ValidationFailed("At least one scheme item must be selected")
	}

	roles := actor.RoleSet()
	key := scopelock.ScopeKey(req.RegulationID, req.ProgrammeID)
	return scopelock.Do(s.locks, key, func() (*dto.StatusChangeResponse, error) {
		items, err := s.repo.SchemeItem.ListByIDs(ctx, ids)
		if err != nil {
			return nil, pkgerrors.PersistenceFailed(err)
		}

		found := make(map[string]bool, len(items))
		for _, it := range items {
			if it.RegulationID == req.RegulationID && it.ProgrammeID == req.ProgrammeID {
				found[it.SchemeItemID] = true
			}
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return nil, pkgerrors.NotFound("scheme item", strings.Join(missing, ", "))
		}

		// 收集全部不符合迁移条件的课程代码
		var offending []string
		for i := range items {
			it := &items[i]
			if !target.eligible(it) || !workflow.CanMove(target.kind, target.current(it), req.To, roles) {
				offending = append(offending, it.Code)
			}
		}
		if len(offending) > 0 {
			sort.Strings(offending)
			return nil, pkgerrors.TransitionDenied(req.To, offending)
		}

		err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			n, err := target.apply(ctx, tx, ids, req.To, reason, actor.UserID)
			if err != nil {
				return pkgerrors.PersistenceFailed(err)
			}
			if n != int64(len(ids)) {
				return pkgerrors.PersistenceFailed(fmt.Errorf("expected %d rows to change, got %d", len(ids), n))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		itemCodes := make([]string, 0, len(items))
		for _, it := range items {
			itemCodes = append(itemCodes, it.Code)
		}
		sort.Strings(itemCodes)
		msg := fmt.Sprintf("%d scheme item(s) moved to %s", len(ids), req.To)

		s.audit.Record(string(target.kind), "status_change", actor, fmt.Sprintf("%s: %s", msg, strings.Join(itemCodes, ", ")))
		s.notifier.Notify(ctx, target.event, map[string]interface{}{
			"regulation_id": req.RegulationID,
			"programme_id":  req.ProgrammeID,
			"codes":         itemCodes,
			"to":            req.To,
			"reason":        reason,
			"actor_id":      actor.UserID,
		})
		return &dto.StatusChangeResponse{Message: msg, Updated: len(ids)}, nil
	})
}

// ────────────────────── 课程目标与映射 ──────────────────────

func (s *schemeService) UpdateCourseOutcomes(ctx context.Context, actor dto.Actor, id string, req *dto.UpdateCourseOutcomesRequest) (resp *dto.SchemeItemResponse, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.UpdateCourseOutcomes", "", "")
	defer func() { s.endSpan(span, "update_outcomes", err) }()

	if err := authorize(workflow.ActionEditOutcomes, actor.RoleSet()); err != nil {
		return nil, err
	}

	outcomes := make(model.CourseOutcomes, len(req.Outcomes))
	for key, in := range req.Outcomes {
		outcomes[key] = model.CourseOutcome{Description: strings.TrimSpace(in.Description), Taxonomy: in.Taxonomy, Weight: in.Weight}
	}
	if msgs := ValidateCourseOutcomes(outcomes); len(msgs) > 0 {
		return nil, pkgerrors.ValidationFailed(msgs...)
	}

	item, err := s.mutateItem(ctx, id, req.Version, func(item *model.SchemeItem) error {
		if !workflow.EditableStatus(item.MappingStatus) {
			return pkgerrors.Precondition("course outcomes of %s cannot change while its mapping is %s", item.Code, item.MappingStatus)
		}
		item.CourseOutcomes = datatypes.NewJSONType(outcomes)
		// 删除的课程目标同步移出映射
		item.OutcomeMapping = datatypes.NewJSONType(pruneMapping(item.OutcomeMapping.Data(), outcomes))
		item.UpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(string(workflow.KindSchemeItem), "update_outcomes", actor, fmt.Sprintf("updated course outcomes of %s", item.Code))
	s.notifier.Notify(ctx, EventOutcomesUpdated, itemEvent(item))
	return toSchemeItemResponse(item), nil
}

func (s *schemeService) UpdateOutcomeMapping(ctx context.Context, actor dto.Actor, id string, req *dto.UpdateOutcomeMappingRequest) (resp *dto.SchemeItemResponse, err error) {
	ctx, span := s.startSpan(ctx, "SchemeService.UpdateOutcomeMapping", "", "")
	defer func() { s.endSpan(span, "update_mapping", err) }()

	if err := authorize(workflow.ActionEditMapping, actor.RoleSet()); err != nil {
		return nil, err
	}

	mapping := model.OutcomeMapping(req.Mapping)
	item, err := s.mutateItem(ctx, id, req.Version, func(item *model.SchemeItem) error {
		scope, err := s.repo.Scope.Get(ctx, item.RegulationID, item.ProgrammeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Precondition("programme %s is not registered under the regulation", item.ProgrammeID)
			}
			return pkgerrors.PersistenceFailed(err)
		}
		if msgs := ValidateOutcomeMapping(item, scope, mapping); len(msgs) > 0 {
			return pkgerrors.ValidationFailed(msgs...)
		}
		item.OutcomeMapping = datatypes.NewJSONType(mapping)
		item.UpdatedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(string(workflow.KindOutcomeMapping), "update", actor, fmt.Sprintf("updated outcome mapping of %s", item.Code))
	s.notifier.Notify(ctx, EventMappingUpdated, itemEvent(item))
	return toSchemeItemResponse(item), nil
}

// mutateItem 在作用域锁内重新读取课程、校验版本、执行 mutate 并单事务写回
func (s *schemeService) mutateItem(ctx context.Context, id string, version int, mutate func(*model.SchemeItem) error) (*model.SchemeItem, error) {
	current, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}

	key := scopelock.ScopeKey(current.RegulationID, current.ProgrammeID)
	return scopelock.Do(s.locks, key, func() (*model.SchemeItem, error) {
		item, err := s.loadItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if version != item.Version {
			return nil, pkgerrors.ErrOptimisticLock
		}
		if err := mutate(item); err != nil {
			return nil, err
		}
		err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			return pkgerrors.PersistenceFailed(tx.SchemeItem.Update(ctx, item))
		})
		if err != nil {
			return nil, err
		}
		return item, nil
	})
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *schemeService) loadItem(ctx context.Context, id string) (*model.SchemeItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.Precondition("invalid scheme item id %q", id)
	}
	item, err := s.repo.SchemeItem.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("scheme item", id)
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.PersistenceFailed(err)
	}
	return item, nil
}

func (s *schemeService) validate(ctx context.Context, item *model.SchemeItem, req *dto.SchemeItemRequest, privileged bool) error {
	candidate := &SchemeCandidate{Item: item}
	if !item.IsPlaceholder {
		candidate.DepartmentName = derefString(req.DepartmentName)
		candidate.DepartmentCategory = derefString(req.DepartmentCategory)
	}
	msgs, err := s.validator.Validate(ctx, candidate, privileged)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		return pkgerrors.ValidationFailed(msgs...)
	}
	return nil
}

func (s *schemeService) checkNotFrozen(ctx context.Context, regulationID, programmeID string, semester int) error {
	scope, err := s.repo.Scope.Get(ctx, regulationID, programmeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Precondition("programme %s is not registered under the regulation", programmeID)
		}
		return pkgerrors.PersistenceFailed(err)
	}
	if scope.FrozenSemesters.Contains(semester) {
		return pkgerrors.Precondition("semester %d is frozen", semester)
	}
	return nil
}

func (s *schemeService) startSpan(ctx context.Context, name, regulationID, programmeID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	if regulationID != "" {
		span.SetAttributes(attribute.String("scope.key", scopelock.ScopeKey(regulationID, programmeID)))
	}
	return ctx, span
}

// endSpan 结束 span；持久化类失败额外记录错误日志
func (s *schemeService) endSpan(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if !pkgerrors.IsDomain(err) {
		s.logger.Error("课程操作失败", zap.String("op", op), zap.Error(err))
	}
}

func authorize(action workflow.Action, roles workflow.RoleSet) error {
	if !workflow.Permits(action, roles) {
		return pkgerrors.Forbidden(string(action))
	}
	return nil
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return pkgerrors.Precondition("invalid id %q", id)
		}
	}
	return nil
}

// applyRequest 将请求字段写入课程；占位课清空参考数据，非方向课清空方向名
func applyRequest(item *model.SchemeItem, req *dto.SchemeItemRequest) {
	item.Semester = req.Semester
	item.Code = strings.TrimSpace(req.Code)
	item.Name = strings.TrimSpace(req.Name)
	item.Category = req.Category
	item.Type = req.Type
	item.CreditPatternID = req.CreditPatternID
	item.EvaluationPatternID = req.EvaluationPatternID
	item.OfferingDepartmentID = nil
	item.Prerequisites = uniqueStrings(req.Prerequisites)
	item.IsVertical = req.IsVertical
	item.VerticalName = req.VerticalName
	item.IsPlaceholder = req.IsPlaceholder
	item.IsOneYear = req.IsOneYear

	if item.IsPlaceholder {
		item.Type = nil
		item.CreditPatternID = nil
		item.EvaluationPatternID = nil
	}
	if !item.IsVertical {
		item.VerticalName = nil
	}
}

func pruneMapping(mapping model.OutcomeMapping, outcomes model.CourseOutcomes) model.OutcomeMapping {
	pruned := make(model.OutcomeMapping, len(mapping))
	for po, row := range mapping {
		kept := make(map[string]string, len(row))
		for co, level := range row {
			if _, ok := outcomes[co]; ok {
				kept[co] = level
			}
		}
		if len(kept) > 0 {
			pruned[po] = kept
		}
	}
	return pruned
}

func itemEvent(item *model.SchemeItem) map[string]interface{} {
	return map[string]interface{}{
		"scheme_item_id": item.SchemeItemID,
		"regulation_id":  item.RegulationID,
		"programme_id":   item.ProgrammeID,
		"code":           item.Code,
		"status":         item.Status,
		"mapping_status": item.MappingStatus,
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
