package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("the record was modified by another operation, reload and retry")

// ErrNotFound 资源不存在（NotFoundError 可通过 errors.Is 匹配）
var ErrNotFound = errors.New("resource not found")

// ErrCommitTimeout 事务超出提交窗口
var ErrCommitTimeout = errors.New("transaction exceeded the commit window")

// ── 业务错误变体 ──

// ValidationError 聚合的业务规则校验失败，调用方可一次性修正全部问题
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// ValidationFailed 构造 ValidationError
func ValidationFailed(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// TransitionError 状态迁移被拒绝，Codes 为全部不符合条件的课程代码
type TransitionError struct {
	Target string
	Codes  []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move to %s: %s", e.Target, strings.Join(e.Codes, ", "))
}

// TransitionDenied 构造 TransitionError
func TransitionDenied(target string, codes []string) *TransitionError {
	return &TransitionError{Target: target, Codes: codes}
}

// NotFoundError 指定资源不存在
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is 使 errors.Is(err, ErrNotFound) 成立
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound 构造 NotFoundError
func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// PreconditionError 致命前置条件失败（法规未批准、专业未注册、ID 格式非法等）
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// Precondition 构造 PreconditionError
func Precondition(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

// PermissionError 角色无权执行该操作
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("not permitted to %s", e.Action)
}

// Forbidden 构造 PermissionError
func Forbidden(action string) *PermissionError {
	return &PermissionError{Action: action}
}

// PersistenceError 持久化/事务失败，错误信息原样透出底层原因
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string { return e.Cause.Error() }

func (e *PersistenceError) Unwrap() error { return e.Cause }

// PersistenceFailed 包装底层错误；已是业务错误变体时原样返回
func PersistenceFailed(err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Cause: err}
}

// IsDomain 判断是否为业务错误变体（非持久化错误）
func IsDomain(err error) bool {
	var (
		ve *ValidationError
		te *TransitionError
		ne *NotFoundError
		pc *PreconditionError
		pm *PermissionError
	)
	return errors.As(err, &ve) || errors.As(err, &te) || errors.As(err, &ne) ||
		errors.As(err, &pc) || errors.As(err, &pm) || errors.Is(err, ErrOptimisticLock)
}
