// Package token 提供单调递增的请求令牌，用于丢弃过期的异步结果。
package token

import "sync/atomic"

// Token 标识一次触发请求的状态变化。0 表示“从未发出”。
type Token uint64

// Counter 是并发安全的令牌计数器；零值可用。
type Counter struct {
	n atomic.Uint64
}

// Next 作废之前发出的全部令牌并返回新令牌。
func (c *Counter) Next() Token {
	return Token(c.n.Add(1))
}

func (c *Counter) Current() Token {
	return Token(c.n.Load())
}

// Valid 判断 t 是否仍是最新令牌。
func (c *Counter) Valid(t Token) bool {
	return t != 0 && c.Current() == t
}
