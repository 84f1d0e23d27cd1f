package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"regulations/backend/config"
	pkgerrors "regulations/backend/pkg/errors"
)

// Gateway 事务持久化网关
// 一次 RunAtomic 对应一个数据库事务：要么全部生效，要么全部回滚
type Gateway struct {
	repo *Repository
	cfg  config.WorkflowConfig
}

// NewGateway 创建事务网关
func NewGateway(repo *Repository, cfg config.WorkflowConfig) *Gateway {
	return &Gateway{repo: repo, cfg: cfg}
}

// RunAtomic 在单个事务中执行 fn
//
// fn 返回的错误在回滚后原样返回；提交失败、驱动错误与超出提交窗口
// 统一包装为 PersistenceError。不做重试。
func (g *Gateway) RunAtomic(ctx context.Context, fn func(tx *Repository) error) error {
	if g.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CommitTimeout)
		defer cancel()
	}

	var stepErr error
	err := g.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.applySessionSettings(tx); err != nil {
			return err
		}

		if err := fn(g.repo.WithTx(tx)); err != nil {
			stepErr = err
			return err
		}

		// 提交前确认仍在提交窗口内
		if ctx.Err() != nil {
			return pkgerrors.ErrCommitTimeout
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if stepErr != nil {
		return stepErr
	}
	if errors.Is(err, pkgerrors.ErrCommitTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.PersistenceFailed(fmt.Errorf("%w (%s)", pkgerrors.ErrCommitTimeout, g.cfg.CommitTimeout))
	}
	return pkgerrors.PersistenceFailed(err)
}

// applySessionSettings PostgreSQL 下设置本事务的提交确认级别
func (g *Gateway) applySessionSettings(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" || g.cfg.SynchronousCommit == "" {
		return nil
	}
	// 取值已在 config.Validate 中限定为合法枚举
	return tx.Exec("SET LOCAL synchronous_commit = " + g.cfg.SynchronousCommit).Error
}
