package kv

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/filmfiesta/internal/infra/fsx"
)

// File 把每个 key 存成 <root>/kv/<key>.json。
//
// 约束：
// - ReadOnly=true 时只允许读（例如 CLI 只读查看评论）
// - 写入走 fsx.WriteFileAtomic，进程崩溃不会留下半截文件
type File struct {
	Root     string // 数据目录
	ReadOnly bool
}

var _ Store = File{}

func NewFile(root string, readOnly bool) File {
	return File{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// Dir 返回实际存放 value 的目录。
func (s File) Dir() string {
	return filepath.Join(s.Root, "kv")
}

// Path 返回 key 对应文件的绝对路径。
func (s File) Path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir(), key+".json"), nil
}

func (s File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return fsx.ReadFile(path)
}

func (s File) Set(ctx context.Context, key string, value []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(s.Dir(), key+".json", value)
}

func (s File) Close() error { return nil }
