package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
	"regulations/backend/internal/workflow"
	pkgerrors "regulations/backend/pkg/errors"
	"regulations/backend/pkg/scopelock"
)

// ScopeService 作用域（法规 × 专业）业务接口
type ScopeService interface {
	Get(ctx context.Context, regulationID, programmeID string) (*dto.ScopeResponse, error)
	// FreezeSemesters 冻结学期：非管理员不能再在这些学期内增删改课程
	FreezeSemesters(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest) (*dto.ScopeResponse, error)
	UnfreezeSemesters(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest) (*dto.ScopeResponse, error)
}

type scopeService struct {
	repo     *repository.Repository
	gateway  *repository.Gateway
	locks    *scopelock.Coordinator
	audit    AuditSink
	notifier Notifier
	logger   *zap.Logger
}

// NewScopeService 创建 ScopeService 实例
func NewScopeService(
	repo *repository.Repository,
	gateway *repository.Gateway,
	locks *scopelock.Coordinator,
	audit AuditSink,
	notifier Notifier,
	logger *zap.Logger,
) ScopeService {
	return &scopeService{repo: repo, gateway: gateway, locks: locks, audit: audit, notifier: notifier, logger: logger}
}

func (s *scopeService) Get(ctx context.Context, regulationID, programmeID string) (*dto.ScopeResponse, error) {
	rp, err := s.loadScope(ctx, regulationID, programmeID)
	if err != nil {
		return nil, err
	}
	return toScopeResponse(rp), nil
}

func (s *scopeService) FreezeSemesters(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest) (*dto.ScopeResponse, error) {
	return s.setFrozen(ctx, actor, req, true)
}

func (s *scopeService) UnfreezeSemesters(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest) (*dto.ScopeResponse, error) {
	return s.setFrozen(ctx, actor, req, false)
}

func (s *scopeService) setFrozen(ctx context.Context, actor dto.Actor, req *dto.FreezeSemestersRequest, freeze bool) (*dto.ScopeResponse, error) {
	if err := authorize(workflow.ActionFreezeSemesters, actor.RoleSet()); err != nil {
		return nil, err
	}
	if err := checkIDs(req.RegulationID, req.ProgrammeID); err != nil {
		return nil, err
	}

	key := scopelock.ScopeKey(req.RegulationID, req.ProgrammeID)
	return scopelock.Do(s.locks, key, func() (*dto.ScopeResponse, error) {
		rp, err := s.loadScope(ctx, req.RegulationID, req.ProgrammeID)
		if err != nil {
			return nil, err
		}

		maxSem := rp.Programme.MaxSemester()
		var msgs []string
		for _, sem := range req.Semesters {
			if sem < 1 || sem > maxSem {
				msgs = append(msgs, fmt.Sprintf("Semester %d is out of range, must be between 1 and %d", sem, maxSem))
			}
		}
		if len(msgs) > 0 {
			return nil, pkgerrors.ValidationFailed(msgs...)
		}

		set := make(map[int]bool, len(rp.FrozenSemesters)+len(req.Semesters))
		for _, sem := range rp.FrozenSemesters {
			set[sem] = true
		}
		for _, sem := range req.Semesters {
			set[sem] = freeze
		}
		frozen := make(model.IntArray, 0, len(set))
		for sem, on := range set {
			if on {
				frozen = append(frozen, sem)
			}
		}
		sort.Ints(frozen)

		err = s.gateway.RunAtomic(ctx, func(tx *repository.Repository) error {
			return pkgerrors.PersistenceFailed(tx.Scope.SetFrozenSemesters(ctx, req.RegulationID, req.ProgrammeID, frozen, actor.UserID))
		})
		if err != nil {
			if !pkgerrors.IsDomain(err) {
				s.logger.Error("更新冻结学期失败", zap.String("scope", key), zap.Error(err))
			}
			return nil, err
		}
		rp.FrozenSemesters = frozen

		action := "unfreeze"
		if freeze {
			action = "freeze"
		}
		s.audit.Record("scope", action, actor, fmt.Sprintf("%s semesters %v, frozen now %v", action, req.Semesters, []int(frozen)))
		s.notifier.Notify(ctx, EventSemestersFrozen, map[string]interface{}{
			"regulation_id":    req.RegulationID,
			"programme_id":     req.ProgrammeID,
			"frozen_semesters": []int(frozen),
		})
		return toScopeResponse(rp), nil
	})
}

func (s *scopeService) loadScope(ctx context.Context, regulationID, programmeID string) (*model.RegulationProgramme, error) {
	rp, err := s.repo.Scope.Get(ctx, regulationID, programmeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("programme scope", scopelock.ScopeKey(regulationID, programmeID))
		}
		s.logger.Error("查询作用域失败", zap.Error(err))
		return nil, pkgerrors.PersistenceFailed(err)
	}
	if rp.Programme == nil {
		return nil, pkgerrors.NotFound("programme", programmeID)
	}
	return rp, nil
}
