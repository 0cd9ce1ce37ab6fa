package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Store 是本地持久化的 key/value 存储（对应浏览器 localStorage 的职责）。
//
// 约束：
// - Get 未命中返回 ok=false、err=nil（不存在不算错误）
// - Set 覆盖写入；读方要么看到旧值，要么看到新值
// - value 原样保存，不做任何编码假设（上层自己决定用 JSON）
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

var (
	ErrReadOnly   = errors.New("kv: read-only")
	ErrInvalidKey = errors.New("kv: invalid key")
)

var keyRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateKey 做最小约束：文件后端会把 key 当作文件名，必须避免路径穿越。
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w：key 不能为空", ErrInvalidKey)
	}
	if len(key) > 200 || !keyRE.MatchString(key) {
		return fmt.Errorf("%w：%q", ErrInvalidKey, key)
	}
	return nil
}

// Memory 是进程内实现：测试替身，也用于 storage.driver=memory。
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *Memory) Close() error { return nil }

// emptyReadOnly 是尚未创建的数据库的只读视图：永远未命中，拒绝写入。
type emptyReadOnly struct{}

func (emptyReadOnly) Get(_ context.Context, key string) ([]byte, bool, error) {
	return nil, false, ValidateKey(key)
}

func (emptyReadOnly) Set(_ context.Context, key string, _ []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return ErrReadOnly
}

func (emptyReadOnly) Close() error { return nil }
