package views

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/app/pages"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/tmdb"
)

var now = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func render(t *testing.T, name string, p Page) *goquery.Document {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, name, p))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestCard(t *testing.T) {
	b := Builder{}
	c := b.Card(domain.Movie{ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15", VoteAverage: 8.433, PosterPath: "/p.jpg"})
	assert.Equal(t, "/movie/550", c.Href)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", c.PosterURL)
	assert.Equal(t, 1999, c.Year)
	assert.Equal(t, "8.4", c.Rating)
	assert.Equal(t, MsgNoDescription, c.Overview)

	c = b.Card(domain.Movie{ID: 1})
	assert.Equal(t, tmdb.PlaceholderURL, c.PosterURL)
	assert.Equal(t, 0, c.Year)
	assert.Empty(t, c.Rating, "评分为 0 时不展示")

	assert.Equal(t, "8", FormatRating(8.0))
}

func TestList_States(t *testing.T) {
	b := Builder{}

	l := b.List("T", domain.Loading[[]domain.Movie]())
	assert.True(t, l.Loading)
	assert.Len(t, l.Skeletons, 5)

	l = b.List("T", domain.Loaded([]domain.Movie{}))
	assert.True(t, l.Empty)

	l = b.List("T", domain.Errored[[]domain.Movie](errors.New("x")))
	assert.True(t, l.Empty, "失败时展示空列表")

	l = b.List("T", domain.Loaded([]domain.Movie{{ID: 1}, {ID: 2}}))
	assert.False(t, l.Empty)
	assert.Len(t, l.Cards, 2)
}

func TestNavbar_ExactMatch(t *testing.T) {
	active := func(n Navbar) []string {
		var out []string
		for _, l := range n.Links {
			if l.Active {
				out = append(out, l.Href)
			}
		}
		return out
	}
	assert.Equal(t, []string{"/"}, active(NewNavbar("/", "")))
	assert.Equal(t, []string{"/discover"}, active(NewNavbar("/discover", "")))
	assert.Empty(t, active(NewNavbar("/movie/550", "")))
	assert.Empty(t, active(NewNavbar("/search/", "")))
}

func TestRender_Home(t *testing.T) {
	b := Builder{}
	v := pages.HomeView{
		Featured: &domain.Movie{ID: 7, Title: "Featured", BackdropPath: "/b.jpg"},
		Sections: []pages.MovieSection{
			{Title: pages.TitleTrending, Movies: domain.Loaded([]domain.Movie{{ID: 7, Title: "Featured", VoteAverage: 7.25}})},
			{Title: pages.TitleRecommended, Movies: domain.Loading[[]domain.Movie]()},
			{Title: pages.TitleTopRated, Movies: domain.Loaded([]domain.Movie{})},
		},
		Notices: []pages.Notice{{Kind: pages.NoticeError, Text: pages.MsgLoadMoviesFailed}},
	}
	doc := render(t, PageHome, NewPage("", "/", "", now, v.Notices, b.Home(v)))

	assert.Equal(t, "Welcome to FilmFiesta", strings.TrimSpace(doc.Find(".hero h1").Text()))
	style, _ := doc.Find(".hero").Attr("style")
	assert.Contains(t, style, "https://image.tmdb.org/t/p/original/b.jpg")
	assert.Equal(t, 3, doc.Find("form.search-form").Length(), "桌面、移动端与头图各一个搜索表单")

	sections := doc.Find("section.movie-list")
	require.Equal(t, 3, sections.Length())
	assert.Equal(t, "Trending Now", sections.Eq(0).Find("h2").Text())
	assert.Equal(t, "7.3", strings.TrimSpace(sections.Eq(0).Find(".movie-rating").Text()))
	assert.Equal(t, "Click for more details", sections.Eq(0).Find(".hint").Text())
	assert.Equal(t, 5, sections.Eq(1).Find(".skeleton").Length())
	assert.Equal(t, "No movies found.", sections.Eq(2).Find(".empty").Text())

	assert.Equal(t, pages.MsgLoadMoviesFailed, doc.Find(".toast-error").Text())
	assert.Equal(t, "Home", doc.Find(".nav-desktop a.active").Text())
	assert.Contains(t, doc.Find("footer").Text(), "FilmFiesta © 2025 - Powered by TMDB")
}

func TestRender_HomeWithoutFeatured(t *testing.T) {
	v := pages.HomeView{Sections: []pages.MovieSection{{Title: pages.TitleTrending, Movies: domain.Loaded([]domain.Movie{})}}}
	doc := render(t, PageHome, NewPage("", "/", "", now, nil, Builder{}.Home(v)))
	assert.Equal(t, 0, doc.Find(".hero").Length())
	assert.Equal(t, 0, doc.Find(".toasts").Length())
}

func TestRender_Details(t *testing.T) {
	m := &domain.Movie{
		ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15", VoteAverage: 8.433, Runtime: 139,
		Genres: []domain.Genre{{ID: 18, Name: "Drama"}},
	}
	v := pages.DetailsView{
		ID:        550,
		Movie:     m,
		Directors: []domain.Person{{Name: "A"}, {Name: "B"}},
		Cast:      []domain.Person{{Name: "Brad Pitt", Character: "Tyler", ProfilePath: "/bp.jpg"}},
		Reviews: domain.Loaded([]domain.Review{
			{ID: 1, Rating: 7, Comment: "Loved it", Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		}),
	}
	doc := render(t, PageDetails, NewPage(m.Title, "/movie/550", "", now, nil, Builder{}.Details(v)))

	assert.Equal(t, "Fight Club", doc.Find(".info h1").Text())
	assert.Equal(t, "★ 8.4", doc.Find(".rating").Text())
	assert.Equal(t, "139 mins", doc.Find(".runtime").Text())
	assert.Equal(t, "10/15/1999", doc.Find(".release-date").Text())
	assert.Equal(t, "No overview available.", doc.Find(".overview p").Text())
	assert.Equal(t, "Directors", doc.Find(".directors h2").Text())
	src, _ := doc.Find(".cast img").Attr("src")
	assert.Equal(t, "https://image.tmdb.org/t/p/w185/bp.jpg", src)
	assert.Equal(t, 10, doc.Find(".stars input[type=radio]").Length())
	action, _ := doc.Find(".review-form form").Attr("action")
	assert.Equal(t, "/movie/550/reviews", action)

	assert.Equal(t, "Reviews (1)", doc.Find(".reviews h2").Text())
	assert.Equal(t, 7, doc.Find(".review .star.filled").Length())
	assert.Equal(t, "Jan 2, 2024", doc.Find(".review .date").Text())
	assert.Equal(t, 0, doc.Find(".movie-list").Length(), "没有相似电影时不展示该区块")
	assert.Equal(t, 0, doc.Find(".nav-desktop a.active").Length())
}

func TestRender_DetailsEmptyAndNotFound(t *testing.T) {
	v := pages.DetailsView{ID: 1, Movie: &domain.Movie{ID: 1, Title: "X"}, Reviews: domain.Loaded([]domain.Review{})}
	doc := render(t, PageDetails, NewPage("", "/movie/1", "", now, nil, Builder{}.Details(v)))
	assert.Equal(t, "Reviews (0)", doc.Find(".reviews h2").Text())
	assert.Equal(t, pages.MsgNoReviews, doc.Find(".no-reviews").Text())
	assert.Equal(t, 0, doc.Find(".rating").Length())
	assert.Equal(t, 0, doc.Find(".runtime").Length())

	doc = render(t, PageDetails, NewPage("", "/movie/1", "", now, nil, Builder{}.Details(pages.DetailsView{ID: 1})))
	assert.Equal(t, "Movie Not Found", doc.Find(".not-found h1").Text())
	assert.Equal(t, 0, doc.Find(".review-form").Length())
}

func TestRender_Discover(t *testing.T) {
	st := discover.State{
		Selection:       discover.GenreSelection(domain.Genre{ID: 35, Name: "Comedy"}),
		Movies:          domain.Loaded([]domain.Movie{{ID: 1, Title: "A"}}),
		Genres:          domain.Loaded([]domain.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}),
		ActorSearchOpen: true,
		Suggestions:     domain.Loaded([]domain.Person{{ID: 31, Name: "Tom Hanks"}}),
	}
	doc := render(t, PageDiscover, NewPage("Discover", "/discover", "", now, nil, Builder{}.Discover(st)))

	assert.Equal(t, "Comedy Movies", doc.Find(".movie-list h2").Text())
	assert.Equal(t, 1, doc.Find(".clear-filters").Length())
	assert.Equal(t, 0, doc.Find(".filter.active").Length(), "选择类型时没有生效的筛选项")
	assert.Equal(t, "Comedy", doc.Find(".genre.active").Text())
	assert.Equal(t, "Hide", doc.Find(".actor-toggle").Text())
	assert.Equal(t, "T", doc.Find(".actor .initial").Text())
	href, _ := doc.Find(".actor").Attr("href")
	assert.Equal(t, "/discover?actor=31&actor_name=Tom+Hanks", href)

	st = discover.State{Selection: discover.DefaultSelection(), Movies: domain.Loading[[]domain.Movie]()}
	doc = render(t, PageDiscover, NewPage("Discover", "/discover", "", now, nil, Builder{}.Discover(st)))
	assert.Equal(t, "Popular", doc.Find(".filter.active").Text())
	assert.Equal(t, 0, doc.Find(".clear-filters").Length())
	assert.Equal(t, "Actor Search", doc.Find(".actor-toggle").Text())
	assert.Equal(t, 0, doc.Find(".actor-search").Length())
	assert.Equal(t, 5, doc.Find(".skeleton").Length())
}

func TestRender_Search(t *testing.T) {
	v := pages.SearchView{
		Query:   "matrix",
		Heading: `Search Results for "matrix"`,
		Results: pages.MovieSection{Title: "Search Results (0)", Movies: domain.Loaded([]domain.Movie{})},
	}
	doc := render(t, PageSearch, NewPage("Search", "/search", v.Query, now, nil, Builder{}.Search(v)))
	assert.Equal(t, `Search Results for "matrix"`, doc.Find(".search-page h1").Text())
	val, _ := doc.Find(".search-page-form input[name=q]").Attr("value")
	assert.Equal(t, "matrix", val)
	assert.Equal(t, "No movies found.", doc.Find(".empty").Text())
	assert.Equal(t, "Search", doc.Find(".nav-desktop a.active").Text())
}

func TestRender_NotFoundAndFragment(t *testing.T) {
	doc := render(t, PageNotFound, NewPage("Not Found", "/nope", "", now, nil, NewNotFound("/nope")))
	assert.Equal(t, "Oops! This page was not found", doc.Find(".not-found .lead").Text())
	href, _ := doc.Find(".not-found a").Attr("href")
	assert.Equal(t, "/", href)

	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Fragment(&buf, "actors", Builder{}.Suggestions(domain.Loaded([]domain.Person{{ID: 1, Name: "Ann", ProfilePath: "/a.jpg"}}))))
	frag, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	src, _ := frag.Find("#actor-suggestions img").Attr("src")
	assert.Equal(t, "https://image.tmdb.org/t/p/w45/a.jpg", src)

	assert.Error(t, r.Page(&buf, "bogus", Page{}))
}
