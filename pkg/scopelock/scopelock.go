// Package scopelock 提供按作用域键互斥的协调器。
//
// 同一键同一时刻只有一个工作单元执行；不同键之间完全并行。
// 锁在工作单元返回或 panic 时释放。协调器仅在单进程内有效。
package scopelock

import (
	"sort"
	"sync"
)

// ScopeKey 由法规与专业拼接出作用域键
func ScopeKey(regulationID, programmeID string) string {
	return regulationID + ":" + programmeID
}

// Coordinator 作用域锁注册表
// 每个键的锁按需创建；持有者与等待者都释放后回收条目
type Coordinator struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int // 持有者 + 等待者
}

// New 创建 Coordinator
func New() *Coordinator {
	return &Coordinator{locks: make(map[string]*entry)}
}

// WithScopeLock 在 key 的独占锁内执行 fn
func (c *Coordinator) WithScopeLock(key string, fn func() error) error {
	e := c.acquire(key)
	defer c.release(key, e)
	return fn()
}

// WithScopeLocks 按键的字典序依次加锁后执行 fn，重复键只加一次
// 所有多键持有者遵循同一顺序，因此不会相互死锁
func (c *Coordinator) WithScopeLocks(keys []string, fn func() error) error {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	held := make([]*entry, 0, len(sorted))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			c.release(sorted[i], held[i])
		}
	}()
	for _, k := range sorted {
		held = append(held, c.acquire(k))
	}
	return fn()
}

// Do 与 WithScopeLock 相同，但携带返回值
func Do[T any](c *Coordinator, key string, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	err = c.WithScopeLock(key, func() error {
		out, err = fn()
		return err
	})
	return out, err
}

// Held 当前注册表中的键数量（持有或等待中）
func (c *Coordinator) Held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

func (c *Coordinator) acquire(key string) *entry {
	c.mu.Lock()
	e, ok := c.locks[key]
	if !ok {
		e = &entry{}
		c.locks[key] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
	return e
}

func (c *Coordinator) release(key string, e *entry) {
	e.mu.Unlock()

	c.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(c.locks, key)
	}
	c.mu.Unlock()
}
