package service

import (
	"go.uber.org/zap"

	"regulations/backend/config"
	"regulations/backend/internal/repository"
	"regulations/backend/pkg/redis"
	"regulations/backend/pkg/scopelock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Scheme    SchemeService
	Attribute AttributeService
	Scope     ScopeService

	audit    *DBAuditSink
	notifier *PubSubNotifier
}

// NewService 创建 Service 聚合
// rdb 为 nil 时事件只写日志
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	gateway := repository.NewGateway(repo, cfg.Workflow)
	locks := scopelock.New()
	audit := NewAuditSink(repo, logger)

	var pub Publisher
	if rdb != nil {
		pub = rdb
	}
	notifier := NewNotifier(pub, cfg.Redis.EventsChannel, logger)

	return &Service{
		Scheme:    NewSchemeService(repo, gateway, locks, audit, notifier, logger),
		Attribute: NewAttributeService(repo, gateway, locks, DefaultCascades(), audit, notifier, logger),
		Scope:     NewScopeService(repo, gateway, locks, audit, notifier, logger),
		audit:     audit,
		notifier:  notifier,
	}
}

// Flush 等待审计与事件发布完成（优雅关停使用）
func (s *Service) Flush() {
	s.audit.Flush()
	s.notifier.Flush()
}
