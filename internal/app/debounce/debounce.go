// Package debounce 合并一段静默期内的连续调用，只让最后一次生效。
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded 表示本次调用在静默期内被更新的调用取代。
var ErrSuperseded = errors.New("debounce: superseded")

// Debouncer 的零值不可用，请用 New 构造。
//
// 约束：
// - 每次 Wait 都会取代仍在等待的上一次 Wait（后者返回 ErrSuperseded）
// - 只有静默期内没有新调用的 Wait 返回 nil
// - 不启动后台 goroutine：等待发生在调用方自己的 goroutine 里
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending chan struct{}
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Wait 阻塞到静默期结束、被取代或 ctx 结束。
func (d *Debouncer) Wait(ctx context.Context) error {
	mine := make(chan struct{})

	d.mu.Lock()
	if d.pending != nil {
		close(d.pending)
	}
	d.pending = mine
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-mine:
		return ErrSuperseded
	case <-ctx.Done():
		d.release(mine)
		return ctx.Err()
	case <-timer.C:
	}

	// 计时器与新调用可能同时到达：以“是否仍是最新一次”为准。
	if !d.release(mine) {
		return ErrSuperseded
	}
	return nil
}

// release 在 mine 仍是最新等待者时清空 pending，并返回 true。
func (d *Debouncer) release(mine chan struct{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != mine {
		return false
	}
	d.pending = nil
	return true
}
