package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/app/pages"
)

const (
	SessionCookie     = "ff_session"
	DefaultSessionTTL = 30 * time.Minute
)

// session 是一个浏览器会话：Discover 页状态 + 待展示的一次性提示。
type session struct {
	id string

	mu       sync.Mutex
	discover *discover.Controller
	flashes  []pages.Notice
	lastSeen time.Time
	closed   bool
}

// Flash 记录一条提示，下次渲染页面时展示。
func (s *session) Flash(n pages.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, n)
}

// TakeFlashes 取走全部提示（只展示一次）。
func (s *session) TakeFlashes() []pages.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// Discover 懒创建本会话的 Discover 控制器。
// 会话已被清理时返回一个已关闭、不被持有的控制器：不会启动后台拉取。
func (s *session) Discover(newController func() *discover.Controller) *discover.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		c := newController()
		c.Close()
		return c
	}
	if s.discover == nil {
		s.discover = newController()
	}
	return s.discover
}

func (s *session) close() {
	s.mu.Lock()
	c := s.discover
	s.discover = nil
	s.closed = true
	s.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// sessions 是进程内会话表。
//
// 约束：
// - 空闲超过 ttl 的会话由 Run 定期清理，清理时关闭其 Discover 控制器
// - Close 之后不再保留任何后台 goroutine
type sessions struct {
	ttl           time.Duration
	now           func() time.Time
	newController func() *discover.Controller
	log           *zap.Logger

	mu sync.Mutex
	m  map[string]*session
}

func newSessions(ttl time.Duration, newController func() *discover.Controller, log *zap.Logger) *sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessions{
		ttl:           ttl,
		now:           time.Now,
		newController: newController,
		log:           log,
		m:             make(map[string]*session),
	}
}

// get 按 id 取会话；id 为空或未知时新建（返回 created=true，调用方需要下发 cookie）。
func (ss *sessions) get(id string) (s *session, created bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	if s, ok := ss.m[id]; ok && id != "" {
		s.mu.Lock()
		s.lastSeen = now
		s.mu.Unlock()
		return s, false
	}
	s = &session{id: uuid.NewString(), lastSeen: now}
	ss.m[s.id] = s
	return s, true
}

func (ss *sessions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}

// sweep 清理空闲会话，返回清理数量。
func (ss *sessions) sweep() int {
	cutoff := ss.now().Add(-ss.ttl)

	var idle []*session
	ss.mu.Lock()
	for id, s := range ss.m {
		s.mu.Lock()
		last := s.lastSeen
		s.mu.Unlock()
		if last.Before(cutoff) {
			idle = append(idle, s)
			delete(ss.m, id)
		}
	}
	ss.mu.Unlock()

	// 在锁外关闭：Close 会等待在途请求退出。
	for _, s := range idle {
		s.close()
	}
	return len(idle)
}

// Run 定期清理空闲会话，直到 ctx 结束。
func (ss *sessions) Run(ctx context.Context) error {
	t := time.NewTicker(ss.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := ss.sweep(); n > 0 {
				ss.log.Debug("清理空闲会话", zap.Int("count", n))
			}
		}
	}
}

// Close 关闭全部会话。
func (ss *sessions) Close() {
	ss.mu.Lock()
	all := make([]*session, 0, len(ss.m))
	for id, s := range ss.m {
		all = append(all, s)
		delete(ss.m, id)
	}
	ss.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
