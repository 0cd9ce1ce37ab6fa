// Package views 把页面数据转换成模板可以直接渲染的视图模型，并负责模板渲染。
package views

import (
	"fmt"
	"strconv"
	"time"

	"github.com/John-Robertt/filmfiesta/internal/app/pages"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/tmdb"
)

const (
	MsgNoMovies      = "No movies found."
	MsgNoDescription = "No description available."
	MsgNoOverview    = "No overview available."
	WelcomeTitle     = "Welcome to FilmFiesta"

	// 加载中展示的骨架卡片数量。
	skeletonCount = 5
)

// MovieCard 是列表里的一张电影卡片（含悬浮详情）。
type MovieCard struct {
	ID        int
	Title     string
	Href      string
	PosterURL string
	Year      int    // 0 表示不展示
	Rating    string // 空串表示不展示
	Overview  string
}

// MovieList 是一个带标题的电影列表区块。
//
// 规则：
// - Loading：展示 skeletonCount 张骨架卡片
// - 已落定且没有电影（包括失败）：展示 “No movies found.”
// - 否则展示卡片网格
type MovieList struct {
	Title     string
	Loading   bool
	Skeletons []int
	Empty     bool
	Cards     []MovieCard
}

// Hero 是首页头图。
type Hero struct {
	Title       string
	Overview    string
	Href        string
	BackdropURL string
}

type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Navbar 在桌面端与移动端各渲染一个搜索表单（GET /search?q=）。
type Navbar struct {
	Links []NavLink
	Query string
}

type Toast struct {
	Kind string
	Text string
}

// Page 是所有整页模板共用的外壳。
type Page struct {
	Title   string
	Nav     Navbar
	Toasts  []Toast
	Year    int
	Refresh int // >0 时输出 meta refresh（秒）
	Content any
}

// Builder 持有图片地址解析规则（图片 CDN 可配置）。
type Builder struct {
	Images tmdb.Resolver
}

func (b Builder) Card(m domain.Movie) MovieCard {
	overview := m.Overview
	if overview == "" {
		overview = MsgNoDescription
	}
	return MovieCard{
		ID:        m.ID,
		Title:     m.Title,
		Href:      MovieHref(m.ID),
		PosterURL: b.Images.URL(m.PosterPath, tmdb.SizeW500),
		Year:      m.Year(),
		Rating:    FormatRating(m.Rating()),
		Overview:  overview,
	}
}

func (b Builder) List(title string, s domain.Section[[]domain.Movie]) MovieList {
	l := MovieList{Title: title}
	if s.IsLoading() || s.IsIdle() {
		l.Loading = true
		l.Skeletons = make([]int, skeletonCount)
		return l
	}
	for _, m := range s.Data {
		l.Cards = append(l.Cards, b.Card(m))
	}
	l.Empty = len(l.Cards) == 0
	return l
}

func (b Builder) Section(s pages.MovieSection) MovieList {
	return b.List(s.Title, s.Movies)
}

// Hero 没有头图电影时返回 nil（页面不渲染头图）。
func (b Builder) Hero(m *domain.Movie) *Hero {
	if m == nil {
		return nil
	}
	return &Hero{
		Title:       m.Title,
		Overview:    m.Overview,
		Href:        MovieHref(m.ID),
		BackdropURL: b.Images.URL(m.BackdropPath, tmdb.SizeOriginal),
	}
}

func MovieHref(id int) string {
	return "/movie/" + strconv.Itoa(id)
}

// FormatRating 0 返回空串；其它值去掉多余的 0（8.0 → "8"，8.4 → "8.4"）。
func FormatRating(r float64) string {
	if r == 0 {
		return ""
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// NewNavbar 按路径精确匹配高亮当前链接（/movie/1 不高亮任何链接）。
func NewNavbar(path, query string) Navbar {
	links := []NavLink{
		{Label: "Home", Href: "/"},
		{Label: "Discover", Href: "/discover"},
		{Label: "Search", Href: "/search"},
	}
	for i := range links {
		links[i].Active = links[i].Href == path
	}
	return Navbar{Links: links, Query: query}
}

func Toasts(ns []pages.Notice) []Toast {
	out := make([]Toast, 0, len(ns))
	for _, n := range ns {
		out = append(out, Toast{Kind: string(n.Kind), Text: n.Text})
	}
	return out
}

func FooterText(year int) string {
	return fmt.Sprintf("FilmFiesta © %d - Powered by TMDB", year)
}

// NewPage 组装整页外壳。
func NewPage(title, path, query string, now time.Time, notices []pages.Notice, content any) Page {
	return Page{
		Title:   title,
		Nav:     NewNavbar(path, query),
		Toasts:  Toasts(notices),
		Year:    now.Year(),
		Content: content,
	}
}
