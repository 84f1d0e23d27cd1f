package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"regulations/backend/internal/dto"
	"regulations/backend/internal/model"
	"regulations/backend/internal/repository"
)

// 协作方调用的超时（与请求上下文解耦，提交后请求可能已结束）
const collaboratorTimeout = 5 * time.Second

// ── 审计日志 ──

// AuditSink 审计记录接收方：即发即忘，失败只记日志
type AuditSink interface {
	Record(entityKind, action string, actor dto.Actor, message string)
}

// DBAuditSink 写入 audit_logs 表的 AuditSink
type DBAuditSink struct {
	repo   *repository.Repository
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewAuditSink 创建 DBAuditSink
func NewAuditSink(repo *repository.Repository, logger *zap.Logger) *DBAuditSink {
	return &DBAuditSink{repo: repo, logger: logger}
}

// Record 异步写入一条审计记录
func (s *DBAuditSink) Record(entityKind, action string, actor dto.Actor, message string) {
	entry := &model.AuditLog{
		EntityKind: entityKind,
		Action:     action,
		ActorID:    actor.UserID,
		Message:    message,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()

		if err := s.repo.AuditLog.Create(ctx, entry); err != nil {
			s.logger.Warn("写入审计日志失败",
				zap.String("entity_kind", entityKind),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}()
}

// Flush 等待所有未完成的写入（关停与测试使用）
func (s *DBAuditSink) Flush() {
	s.wg.Wait()
}

// ── 事件通知 ──

// 事件种类
const (
	EventItemCreated          = "scheme_item.created"
	EventItemUpdated          = "scheme_item.updated"
	EventItemDeleted          = "scheme_item.deleted"
	EventStatusChanged        = "scheme_item.status_changed"
	EventMappingStatusChanged = "outcome_mapping.status_changed"
	EventOutcomesUpdated      = "scheme_item.outcomes_updated"
	EventMappingUpdated       = "outcome_mapping.updated"
	EventSemestersFrozen      = "scope.semesters_frozen"
	EventAttributeRenamed     = "attribute.renamed"
)

// Notifier 事件通知接收方：异步、尽力而为
type Notifier interface {
	Notify(ctx context.Context, eventKind string, payload interface{})
}

// Publisher 消息发布能力（pkg/redis.Client 实现）
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// Event 发布到消息频道的事件信封
type Event struct {
	Kind       string      `json:"kind"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// PubSubNotifier 通过 Redis PUBLISH 投递事件；未配置发布方时只写日志
type PubSubNotifier struct {
	pub     Publisher
	channel string
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewNotifier 创建 PubSubNotifier，pub 可为 nil
func NewNotifier(pub Publisher, channel string, logger *zap.Logger) *PubSubNotifier {
	return &PubSubNotifier{pub: pub, channel: channel, logger: logger}
}

// Notify 异步发布事件
func (n *PubSubNotifier) Notify(ctx context.Context, eventKind string, payload interface{}) {
	body, err := json.Marshal(Event{Kind: eventKind, Payload: payload, OccurredAt: time.Now().UTC()})
	if err != nil {
		n.logger.Warn("事件序列化失败", zap.String("kind", eventKind), zap.Error(err))
		return
	}

	if n.pub == nil {
		n.logger.Info("事件（未配置发布通道）", zap.String("kind", eventKind), zap.ByteString("event", body))
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), collaboratorTimeout)
		defer cancel()

		if _, err := n.pub.Publish(pctx, n.channel, body); err != nil {
			n.logger.Warn("事件发布失败", zap.String("kind", eventKind), zap.Error(err))
		}
	}()
}

// Flush 等待所有未完成的发布
func (n *PubSubNotifier) Flush() {
	n.wg.Wait()
}
