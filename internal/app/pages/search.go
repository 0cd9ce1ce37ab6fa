package pages

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

const HeadingDiscover = "Discover Movies"

type SearchAPI interface {
	Popular(ctx context.Context) ([]domain.Movie, error)
	SearchMovies(ctx context.Context, query string) ([]domain.Movie, error)
}

// SearchView 是搜索页数据。Query 为去除首尾空白后的查询。
type SearchView struct {
	Query   string
	Heading string
	Results MovieSection
	Notices []Notice
}

type Search struct {
	api SearchAPI
}

func NewSearch(api SearchAPI) *Search {
	return &Search{api: api}
}

// Load 空查询展示热门电影；否则只展示搜索结果。
func (s *Search) Load(ctx context.Context, q string) SearchView {
	q = strings.TrimSpace(q)
	v := SearchView{Query: q}

	if q == "" {
		movies, err := s.api.Popular(ctx)
		v.Heading = HeadingDiscover
		v.Results = MovieSection{Title: "Popular Movies", Movies: settleMovies(movies, err)}
	} else {
		movies, err := s.api.SearchMovies(ctx, q)
		sec := settleMovies(movies, err)
		v.Heading = `Search Results for "` + q + `"`
		v.Results = MovieSection{Title: fmt.Sprintf("Search Results (%d)", len(sec.Data)), Movies: sec}
	}
	if v.Results.Movies.IsErrored() {
		v.Notices = append(v.Notices, errorNotice(MsgLoadMoviesFailed))
	}
	return v
}

// SearchTarget 返回搜索表单提交后的跳转地址；空白输入不跳转（ok=false）。
func SearchTarget(input string) (string, bool) {
	q := strings.TrimSpace(input)
	if q == "" {
		return "", false
	}
	return "/search?q=" + url.QueryEscape(q), true
}
