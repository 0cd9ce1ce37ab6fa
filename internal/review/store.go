package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/infra/kv"
)

// KeyPrefix + movieID 组成存储 key，例如 movie_reviews_550。
const KeyPrefix = "movie_reviews_"

func Key(movieID int) string {
	return KeyPrefix + strconv.Itoa(movieID)
}

// Store 按电影维护本地评论列表（整个列表序列化为一个 JSON 数组）。
//
// 约束：
// - 提交被拒绝时存储保持不变
// - 追加是“读-改-写”整列表；进程内用互斥锁串行化，避免并发提交互相覆盖
type Store struct {
	kv  kv.Store
	now func() time.Time
	log *zap.Logger

	mu sync.Mutex
}

type Option func(*Store)

// WithClock 替换时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l.Named("review") }
}

func NewStore(backend kv.Store, opts ...Option) *Store {
	s := &Store{kv: backend, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// List 返回 movieID 下的全部评论（按提交顺序）；从未提交过返回空列表。
func (s *Store) List(ctx context.Context, movieID int) ([]domain.Review, error) {
	b, ok, err := s.kv.Get(ctx, Key(movieID))
	if err != nil {
		return []domain.Review{}, fmt.Errorf("读取评论失败：%w", err)
	}
	if !ok || len(b) == 0 {
		return []domain.Review{}, nil
	}
	var out []domain.Review
	if err := json.Unmarshal(b, &out); err != nil {
		return []domain.Review{}, fmt.Errorf("评论数据损坏（key=%s）：%w", Key(movieID), err)
	}
	if out == nil {
		out = []domain.Review{}
	}
	return out, nil
}

// Submit 校验评分后追加一条评论并整体写回。
// rating=0 返回 domain.ErrRatingRequired；越界返回 domain.ErrRatingOutOfRange。
func (s *Store) Submit(ctx context.Context, movieID, rating int, comment string) (domain.Review, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return domain.Review{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx, movieID)
	if err != nil {
		return domain.Review{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	r := domain.Review{
		ID:      now.UnixMilli(),
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
		Date:    now,
	}
	// 同一毫秒内连续提交：ID 顺延，保持唯一且递增。
	if n := len(list); n > 0 && list[n-1].ID >= r.ID {
		r.ID = list[n-1].ID + 1
	}
	list = append(list, r)

	b, err := json.Marshal(list)
	if err != nil {
		return domain.Review{}, err
	}
	if err := s.kv.Set(ctx, Key(movieID), b); err != nil {
		return domain.Review{}, fmt.Errorf("保存评论失败：%w", err)
	}
	s.log.Info("review saved", zap.Int("movie_id", movieID), zap.Int("rating", rating), zap.Int("total", len(list)))
	return r, nil
}
