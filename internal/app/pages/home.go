package pages

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

const (
	TitleTrending    = "Trending Now"
	TitleRecommended = "Recommended For You"
	TitleTopRated    = "Top Rated"
)

type HomeAPI interface {
	Trending(ctx context.Context) ([]domain.Movie, error)
	Popular(ctx context.Context) ([]domain.Movie, error)
	TopRated(ctx context.Context) ([]domain.Movie, error)
}

// HomeView 是首页数据。Featured 为 nil 时不展示头图。
type HomeView struct {
	Featured *domain.Movie
	Sections []MovieSection
	Notices  []Notice
}

// Home 按 trending → popular → top rated 的顺序加载首页。
//
// 规则：
// - 三个区块各自落定，一个失败不影响其它区块
// - 头图从 trending 里随机挑一部；trending 为空时没有头图
type Home struct {
	api  HomeAPI
	pick func(n int) int
	log  *zap.Logger
}

type HomeOption func(*Home)

// WithPicker 替换随机数来源（测试用）；pick(n) 必须返回 [0,n) 内的下标。
func WithPicker(pick func(n int) int) HomeOption {
	return func(h *Home) { h.pick = pick }
}

func WithHomeLogger(l *zap.Logger) HomeOption {
	return func(h *Home) { h.log = l }
}

func NewHome(api HomeAPI, opts ...HomeOption) *Home {
	h := &Home{api: api, pick: rand.IntN, log: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Home) Load(ctx context.Context) HomeView {
	steps := []struct {
		title string
		fetch func(context.Context) ([]domain.Movie, error)
	}{
		{TitleTrending, h.api.Trending},
		{TitleRecommended, h.api.Popular},
		{TitleTopRated, h.api.TopRated},
	}

	var v HomeView
	for _, s := range steps {
		movies, err := s.fetch(ctx)
		sec := settleMovies(movies, err)
		if sec.IsErrored() {
			h.log.Warn("首页区块加载失败", zap.String("section", s.title), zap.Error(err))
			v.Notices = append(v.Notices, errorNotice(MsgLoadMoviesFailed))
		}
		v.Sections = append(v.Sections, MovieSection{Title: s.title, Movies: sec})
	}

	if trending := v.Sections[0].Movies.Data; len(trending) > 0 {
		m := trending[h.pick(len(trending))]
		v.Featured = &m
	}
	v.Notices = dedupe(v.Notices)
	return v
}
