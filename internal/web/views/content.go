package views

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/app/pages"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/tmdb"
)

type HomeContent struct {
	Hero  *Hero
	Lists []MovieList
}

func (b Builder) Home(v pages.HomeView) HomeContent {
	c := HomeContent{Hero: b.Hero(v.Featured)}
	for _, s := range v.Sections {
		c.Lists = append(c.Lists, b.Section(s))
	}
	return c
}

type SearchContent struct {
	Query   string
	Heading string
	List    MovieList
}

func (b Builder) Search(v pages.SearchView) SearchContent {
	return SearchContent{Query: v.Query, Heading: v.Heading, List: b.Section(v.Results)}
}

type Chip struct {
	Label  string
	Href   string
	Active bool
}

type ActorChip struct {
	Name     string
	Initial  string
	PhotoURL string // 空串表示没有头像
	Href     string
}

// Suggestions 是演员搜索的候选下拉（也作为 /discover/actors 的片段单独渲染）。
type Suggestions struct {
	Loading bool
	Errored bool
	People  []ActorChip
}

type DiscoverContent struct {
	Heading         string
	ShowClear       bool
	Filters         []Chip
	Genres          []Chip
	GenresErrored   bool
	ActorSearchOpen bool
	ActorToggle     string // “Actor Search” / “Hide”
	ActorQuery      string
	Suggestions     Suggestions
	List            MovieList
}

func (b Builder) Discover(st discover.State) DiscoverContent {
	sel := st.Selection
	active, hasFilter := sel.ActiveFilter()

	c := DiscoverContent{
		Heading:         "Discover Movies",
		ShowClear:       sel.HasGenreOrActor(),
		GenresErrored:   st.Genres.IsErrored(),
		ActorSearchOpen: st.ActorSearchOpen,
		ActorToggle:     "Actor Search",
		ActorQuery:      st.ActorQuery,
		Suggestions:     b.Suggestions(st.Suggestions),
		List:            b.List(sel.Heading(), st.Movies),
	}
	if st.ActorSearchOpen {
		c.ActorToggle = "Hide"
	}
	for _, f := range discover.Filters {
		c.Filters = append(c.Filters, Chip{
			Label:  f.Label(),
			Href:   "/discover?filter=" + string(f),
			Active: hasFilter && f == active,
		})
	}
	for _, g := range st.Genres.Data {
		c.Genres = append(c.Genres, Chip{
			Label:  g.Name,
			Href:   "/discover?genre=" + strconv.Itoa(g.ID),
			Active: sel.Mode == discover.ModeGenre && sel.Genre.ID == g.ID,
		})
	}
	return c
}

func (b Builder) Suggestions(s domain.Section[[]domain.Person]) Suggestions {
	out := Suggestions{Loading: s.IsLoading(), Errored: s.IsErrored()}
	for _, p := range s.Data {
		chip := ActorChip{Name: p.Name, Href: ActorHref(p)}
		if p.ProfilePath != "" {
			chip.PhotoURL = b.Images.URL(p.ProfilePath, tmdb.SizeW45)
		}
		if r := []rune(p.Name); len(r) > 0 {
			chip.Initial = string(r[0])
		}
		out.People = append(out.People, chip)
	}
	return out
}

// ActorHref 带上名字与头像，选择演员时不需要再查一次。
func ActorHref(p domain.Person) string {
	q := url.Values{}
	q.Set("actor", strconv.Itoa(p.ID))
	q.Set("actor_name", p.Name)
	if p.ProfilePath != "" {
		q.Set("actor_profile", p.ProfilePath)
	}
	return "/discover?" + q.Encode()
}

type CastMember struct {
	Name      string
	Character string
	PhotoURL  string // 空串表示没有头像
}

type ReviewItem struct {
	Rating  int
	Stars   []bool
	Comment string
	Date    string
}

type DetailsContent struct {
	NotFound bool
	ID       int
	Action   string // 评论表单提交地址

	Title       string
	BackdropURL string
	PosterURL   string
	Genres      []string
	Rating      string
	Runtime     string
	ReleaseDate string
	Overview    string

	DirectorsHeading string
	Directors        []string
	Cast             []CastMember

	RatingChoices  []int
	ReviewsHeading string
	Reviews        []ReviewItem
	NoReviews      string
	Similar        *MovieList
}

func (b Builder) Details(v pages.DetailsView) DetailsContent {
	c := DetailsContent{ID: v.ID, NotFound: v.NotFound(), Action: MovieHref(v.ID) + "/reviews"}
	if c.NotFound {
		return c
	}
	m := v.Movie

	c.Title = m.Title
	if m.BackdropPath != "" {
		c.BackdropURL = b.Images.URL(m.BackdropPath, tmdb.SizeOriginal)
	}
	c.PosterURL = b.Images.URL(m.PosterPath, tmdb.SizeW500)
	for _, g := range m.Genres {
		c.Genres = append(c.Genres, g.Name)
	}
	c.Rating = FormatRating(m.Rating())
	if m.Runtime > 0 {
		c.Runtime = fmt.Sprintf("%d mins", m.Runtime)
	}
	c.ReleaseDate = FormatReleaseDate(m.ReleaseDate)
	c.Overview = m.Overview
	if c.Overview == "" {
		c.Overview = MsgNoOverview
	}

	for _, d := range v.Directors {
		c.Directors = append(c.Directors, d.Name)
	}
	c.DirectorsHeading = "Director"
	if len(c.Directors) > 1 {
		c.DirectorsHeading = "Directors"
	}
	for _, p := range v.Cast {
		cm := CastMember{Name: p.Name, Character: p.Character}
		if p.ProfilePath != "" {
			cm.PhotoURL = b.Images.URL(p.ProfilePath, tmdb.SizeW185)
		}
		c.Cast = append(c.Cast, cm)
	}

	for i := domain.MinRating; i <= domain.MaxRating; i++ {
		c.RatingChoices = append(c.RatingChoices, i)
	}
	c.ReviewsHeading = v.ReviewsHeading()
	for _, r := range v.Reviews.Data {
		c.Reviews = append(c.Reviews, NewReviewItem(r))
	}
	if len(c.Reviews) == 0 {
		c.NoReviews = pages.MsgNoReviews
	}
	if len(v.Similar.Movies.Data) > 0 {
		l := b.Section(v.Similar)
		c.Similar = &l
	}
	return c
}

func NewReviewItem(r domain.Review) ReviewItem {
	stars := make([]bool, domain.MaxRating)
	for i := range stars {
		stars[i] = i < r.Rating
	}
	return ReviewItem{
		Rating:  r.Rating,
		Stars:   stars,
		Comment: r.Comment,
		Date:    r.Date.Format("Jan 2, 2006"),
	}
}

// FormatReleaseDate 把 YYYY-MM-DD 显示成 M/D/YYYY；无法解析时原样返回。
func FormatReleaseDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return s
	}
	return t.Format("1/2/2006")
}

type NotFoundContent struct {
	Heading string
	Path    string
}

func NewNotFound(path string) NotFoundContent {
	return NotFoundContent{Heading: "Oops! This page was not found", Path: path}
}
