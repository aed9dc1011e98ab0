// Package kvstore 字符串键到二进制值的存储，值在实践中是 JSON 数组；
// Update 对单个键提供原子的读-改-写
package kvstore

import (
	"context"
	"sync"
)

// UpdateFunc current 为键当前值（不存在时为 nil），返回要写入的新值；返回 error 时放弃本次写入
type UpdateFunc func(current []byte) ([]byte, error)

// UpdateManyFunc 与 keys 一一对应的当前值与新值
type UpdateManyFunc func(current [][]byte) ([][]byte, error)

// Store 按键存取的持久化边界
type Store interface {
	// Get 键不存在时返回 nil, nil
	Get(ctx context.Context, key string) ([]byte, error)
	// Update 对同一个键的并发 Update 串行生效
	Update(ctx context.Context, key string, fn UpdateFunc) error
	// UpdateMany 多个键一起读、一起写，任一失败全部不生效
	UpdateMany(ctx context.Context, keys []string, fn UpdateManyFunc) error
	Close() error
}

// Memory 进程内实现，一把锁保护全部键
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory { return &Memory{data: make(map[string][]byte)} }

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(key), nil
}

func (m *Memory) load(key string) []byte {
	v, ok := m.data[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), v...)
}

func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.load(key))
	if err != nil {
		return err
	}
	m.data[key] = append([]byte(nil), next...)
	return nil
}

func (m *Memory) UpdateMany(_ context.Context, keys []string, fn UpdateManyFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := make([][]byte, len(keys))
	for i, k := range keys {
		cur[i] = m.load(k)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if len(next) != len(keys) {
		return errValueCount(len(keys), len(next))
	}
	for i, k := range keys {
		m.data[k] = append([]byte(nil), next[i]...)
	}
	return nil
}

// Set 直接覆盖，测试造数据用
func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

func (m *Memory) Close() error { return nil }
