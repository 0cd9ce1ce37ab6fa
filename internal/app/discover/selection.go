package discover

import (
	"fmt"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

// Filter 是分类筛选项。
type Filter string

const (
	FilterPopular  Filter = "popular"
	FilterTopRated Filter = "top_rated"
	FilterTrending Filter = "trending"
)

// Filters 按页面展示顺序列出全部筛选项。
var Filters = []Filter{FilterPopular, FilterTopRated, FilterTrending}

// ParseFilter 解析筛选项；未知值回退到 popular，ok=false。
func ParseFilter(s string) (Filter, bool) {
	switch Filter(s) {
	case FilterPopular, FilterTopRated, FilterTrending:
		return Filter(s), true
	default:
		return FilterPopular, false
	}
}

func (f Filter) Label() string {
	switch f {
	case FilterTopRated:
		return "Top Rated"
	case FilterTrending:
		return "Trending"
	default:
		return "Popular"
	}
}

// Mode 表示当前生效的选择维度。三者互斥。
type Mode int

const (
	ModeFilter Mode = iota
	ModeGenre
	ModeActor
)

// Selection 是 Discover 页的选择状态。
//
// 约束：任一时刻只有一个维度生效（后写覆盖前写），
// 不存在 genre+actor+filter 的组合；非当前维度的字段保持零值。
type Selection struct {
	Mode   Mode
	Filter Filter
	Genre  domain.Genre
	Actor  domain.Person
}

func FilterSelection(f Filter) Selection {
	if _, ok := ParseFilter(string(f)); !ok {
		f = FilterPopular
	}
	return Selection{Mode: ModeFilter, Filter: f}
}

func GenreSelection(g domain.Genre) Selection {
	return Selection{Mode: ModeGenre, Genre: g}
}

func ActorSelection(p domain.Person) Selection {
	return Selection{Mode: ModeActor, Actor: domain.Person{ID: p.ID, Name: p.Name, ProfilePath: p.ProfilePath}}
}

// DefaultSelection 是初始状态（也是“清除筛选”后的状态）。
func DefaultSelection() Selection {
	return FilterSelection(FilterPopular)
}

// ActiveFilter 返回生效中的筛选项；genre/actor 模式下没有生效的筛选项。
func (s Selection) ActiveFilter() (Filter, bool) {
	if s.Mode != ModeFilter {
		return "", false
	}
	return s.Filter, true
}

// HasGenreOrActor 决定是否展示“清除筛选”。
func (s Selection) HasGenreOrActor() bool {
	return s.Mode == ModeGenre || s.Mode == ModeActor
}

func (s Selection) Heading() string {
	switch s.Mode {
	case ModeGenre:
		return fmt.Sprintf("%s Movies", s.Genre.Name)
	case ModeActor:
		return fmt.Sprintf("Movies with %s", s.Actor.Name)
	}
	switch s.Filter {
	case FilterTopRated:
		return "Top Rated Movies"
	case FilterTrending:
		return "Trending Movies"
	default:
		return "Popular Movies"
	}
}

// Same 判断两次选择是否会得到同一批数据。
func (s Selection) Same(o Selection) bool {
	if s.Mode != o.Mode {
		return false
	}
	switch s.Mode {
	case ModeGenre:
		return s.Genre.ID == o.Genre.ID
	case ModeActor:
		return s.Actor.ID == o.Actor.ID
	default:
		return s.Filter == o.Filter
	}
}
