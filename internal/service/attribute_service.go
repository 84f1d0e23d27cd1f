package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
	"regulations/backend/internal/workflow"
	pkgerrors "regulations/backend/pkg/errors"
	"regulations/backend/pkg/scopelock"
)

// CascadeHandler 属性改名后需同步改写的一处引用
type CascadeHandler struct {
	Table string
	Apply func(ctx context.Context, tx *repository.Repository, oldValue, newValue string) (int64, error)
}

// DefaultCascades 按属性种类注册的级联处理器
func DefaultCascades() map[string][]CascadeHandler {
	return map[string][]CascadeHandler{
		model.AttributeCourseCategory: {
			{Table: "scheme_items.category", Apply: func(ctx context.Context, tx *repository.Repository, o, n string) (int64, error) {
				return tx.SchemeItem.RenameCategory(ctx, o, n)
			}},
		},
		model.AttributeCourseType: {
			{Table: "scheme_items.type", Apply: func(ctx context.Context, tx *repository.Repository, o, n string) (int64, error) {
				return tx.SchemeItem.RenameType(ctx, o, n)
			}},
			{Table: "evaluation_patterns.course_type", Apply: func(ctx context.Context, tx *repository.Repository, o, n string) (int64, error) {
				return tx.EvaluationPattern.RenameCourseType(ctx, o, n)
			}},
		},
		model.AttributeDepartmentCategory: {
			{Table: "departments.category", Apply: func(ctx context.Context, tx *repository.Repository, o, n string) (int64, error) {
				return tx.Department.RenameCategory(ctx, o, n)
			}},
		},
	}
}

// AttributeLockKey 同一种类属性的改名互斥键
func AttributeLockKey(kind string) string {
	return "attribute:" + kind
}

// AttributeService 枚举属性业务接口
type AttributeService interface {
	List(ctx context.Context, kind string) ([]dto.AttributeResponse, error)
	// Rename 改名并在同一事务内执行该种类的全部级联处理器
	Rename(ctx context.Context, actor dto.Actor, id string, req *dto.RenameAttributeRequest) (*dto.AttributeResponse, error)
}

type attributeService struct {
	repo     *repository.Repository
	gateway  *repository.Gateway
	locks    *scopelock.Coordinator
	cascades map[string][]CascadeHandler
	audit    AuditSink
	notifier Notifier
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewAttributeService 创建 AttributeService 实例
func NewAttributeService(
	repo *repository.Repository,
	gateway *repository.Gateway,
	locks *scopelock.Coordinator,
	cascades map[string][]CascadeHandler,
	audit AuditSink,
	notifier Notifier,
	logger *zap.Logger,
) AttributeService {
	return &attributeService{
		repo:     repo,
		gateway:  gateway,
		locks:    locks,
		cascades: cascades,
		audit:    audit,
		notifier: notifier,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}
}

func (s *attributeService) List(ctx context.Context, kind string) ([]dto.AttributeResponse, error) {
	attrs, err := s.repo.Attribute.ListByKind(ctx, kind)
	if err != nil {
		s.logger.Error("列出属性失败", zap.String("kind", kind), zap.Error(err))
		return nil, pkgerrors.PersistenceFailed(err)
	}
	result := make([]dto.AttributeResponse, 0, len(attrs))
	for _, a := range attrs {
		result = append(result, dto.AttributeResponse{ID: a.AttributeID, Kind: a.Kind, Value: a.Value, Version: a.Version})
	}
	return result, nil
}

func (s *attributeService) Rename(ctx context.Context, actor dto.Actor, id string, req *dto.RenameAttributeRequest) (*dto.AttributeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AttributeService.Rename")
	defer span.End()

	if err := authorize(workflow.ActionRenameAttribute, actor.RoleSet()); err != nil {
		return nil, err
	}
	newValue := strings.TrimSpace(req.Value)
	if newValue == "" {
		return nil, pkgerrors.ValidationFailed("Attribute value must not be empty")
	}
	if err := checkIDs(id); err != nil {
		return nil, err
	}

	current, err := s.loadAttribute(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("attribute.kind", current.Kind))

	// 级联会改写各作用域的课程，须同时持有全部作用域锁
	return scopelock.Do(s.locks, AttributeLockKey(current.Kind), func() (*dto.AttributeResponse, error) {
		var resp *dto.AttributeResponse
		err := s.withItemScopes(ctx, func() error {
			var err error
			resp, err = s.rename(ctx, actor, id, newValue, req.Version)
			return err
		})
		return resp, err
	})
}

func (s *attributeService) rename(ctx context.Context, actor dto.Actor, id, newValue string, version int) (*dto.AttributeResponse, error) {
	attr, err := s.loadAttribute(ctx, id)
	if err != nil {
		return nil, err
	}
	if attr.Version != version {
		return nil, pkgerrors.ErrOptimisticLock
	}
	oldValue := attr.Value
	if oldValue == newValue {
		return &dto.AttributeResponse{ID: attr.AttributeID, Kind: attr.Kind, Value: attr.Value, Version: attr.Version}, nil
	}

	dup, err := s.repo.Attribute.GetByValue(ctx, attr.Kind, newValue)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.PersistenceFailed(err)
	}
	if dup != nil {
		return nil, pkgerrors.ValidationFailed(fmt.Sprintf("Attribute %s %q already exists", attr.Kind, newValue))
	}

	cascaded := make(map[string]int64)
	err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
		if err := tx.Attribute.UpdateValue(ctx, attr, newValue, actor.UserID); err != nil {
			return pkgerrors.PersistenceFailed(err)
		}
		for _, h := range s.cascades[attr.Kind] {
			n, err := h.Apply(ctx, tx, oldValue, newValue)
			if err != nil {
				return pkgerrors.PersistenceFailed(fmt.Errorf("cascade %s: %w", h.Table, err))
			}
			cascaded[h.Table] = n
		}
		return nil
	})
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		if !pkgerrors.IsDomain(err) {
			s.logger.Error("属性改名失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.audit.Record("attribute", "rename", actor, fmt.Sprintf("renamed %s %q to %q", attr.Kind, oldValue, newValue))
	s.notifier.Notify(ctx, EventAttributeRenamed, map[string]interface{}{
		"attribute_id": attr.AttributeID,
		"kind":         attr.Kind,
		"old_value":    oldValue,
		"new_value":    newValue,
		"cascaded":     cascaded,
	})
	return &dto.AttributeResponse{
		ID:       attr.AttributeID,
		Kind:     attr.Kind,
		Value:    attr.Value,
		Version:  attr.Version,
		Cascaded: cascaded,
	}, nil
}

// errScopesChanged 加锁期间出现了新的作用域
var errScopesChanged = errors.New("item scopes changed")

const maxScopeLockAttempts = 3

// withItemScopes 持有所有已有课程作用域的锁执行 fn；加锁期间作用域集合变化则重试
func (s *attributeService) withItemScopes(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt < maxScopeLockAttempts; attempt++ {
		keys, err := s.itemScopeKeys(ctx)
		if err != nil {
			return err
		}
		err = s.locks.WithScopeLocks(keys, func() error {
			current, err := s.itemScopeKeys(ctx)
			if err != nil {
				return err
			}
			locked := make(map[string]bool, len(keys))
			for _, k := range keys {
				locked[k] = true
			}
			for _, k := range current {
				if !locked[k] {
					return errScopesChanged
				}
			}
			return fn()
		})
		if !errors.Is(err, errScopesChanged) {
			return err
		}
		s.logger.Warn("改名加锁期间作用域发生变化，重试", zap.Int("attempt", attempt+1))
	}
	return pkgerrors.Precondition("scopes changed while renaming attribute, retry later")
}

func (s *attributeService) itemScopeKeys(ctx context.Context) ([]string, error) {
	scopes, err := s.repo.SchemeItem.ListScopes(ctx)
	if err != nil {
		s.logger.Error("列出课程作用域失败", zap.Error(err))
		return nil, pkgerrors.PersistenceFailed(err)
	}
	keys := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		keys = append(keys, scopelock.ScopeKey(sc.RegulationID, sc.ProgrammeID))
	}
	return keys, nil
}

func (s *attributeService) loadAttribute(ctx context.Context, id string) (*model.Attribute, error) {
	attr, err := s.repo.Attribute.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("attribute", id)
		}
		s.logger.Error("查询属性失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.PersistenceFailed(err)
	}
	return attr, nil
}
