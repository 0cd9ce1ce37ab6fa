package discover

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/app/debounce"
	"github.com/John-Robertt/filmfiesta/internal/app/token"
	"github.com/John-Robertt/filmfiesta/internal/domain"
)

const (
	DefaultDebounce      = 500 * time.Millisecond
	DefaultActorMinChars = 3
)

// ErrSuperseded 表示演员搜索被更新的输入取代（没有发出请求，或结果已过期）。
var ErrSuperseded = debounce.ErrSuperseded

// API 是 Controller 依赖的 gateway 能力子集。
type API interface {
	Popular(ctx context.Context) ([]domain.Movie, error)
	TopRated(ctx context.Context) ([]domain.Movie, error)
	Trending(ctx context.Context) ([]domain.Movie, error)
	Genres(ctx context.Context) ([]domain.Genre, error)
	MoviesByGenre(ctx context.Context, genreID int) ([]domain.Movie, error)
	MoviesByActor(ctx context.Context, personID int) ([]domain.Movie, error)
	SearchPeople(ctx context.Context, query string) ([]domain.Person, error)
}

// State 是某一时刻 Discover 页的完整快照。
type State struct {
	Selection Selection
	Movies    domain.Section[[]domain.Movie]
	Genres    domain.Section[[]domain.Genre]

	ActorSearchOpen bool
	ActorQuery      string
	Suggestions     domain.Section[[]domain.Person]

	// Token 是当前电影列表请求的令牌（调试/测试用）。
	Token token.Token
}

type Options struct {
	Debounce      time.Duration
	ActorMinChars int
	Logger        *zap.Logger
}

// Controller 持有一个浏览器会话的 Discover 页状态。
//
// 约束：
// - 每次选择变化都会签发新令牌并异步拉取；只有令牌仍是最新的结果才会落入状态
// - 演员搜索经过防抖：静默期内的连续输入最多触发一次人物搜索，且只针对最后一次输入
// - Close 之后不会再有后台 goroutine
type Controller struct {
	api      API
	log      *zap.Logger
	deb      *debounce.Debouncer
	minChars int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	moviesTok  token.Counter
	suggestTok token.Counter

	mu      sync.Mutex
	st      State
	settled chan struct{} // 当前令牌对应的拉取完成时关闭
}

func New(api API, o Options) *Controller {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.ActorMinChars <= 0 {
		o.ActorMinChars = DefaultActorMinChars
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:      api,
		log:      o.Logger.Named("discover"),
		deb:      debounce.New(o.Debounce),
		minChars: o.ActorMinChars,
		ctx:      ctx,
		cancel:   cancel,
		st: State{
			Selection:   DefaultSelection(),
			Suggestions: domain.Loaded([]domain.Person{}),
		},
	}
}

// Snapshot 返回当前状态的副本。
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Start 保证类型列表与电影列表都至少拉取过一次（首次打开页面时调用）。
// 类型列表同步拉取；电影列表异步拉取，可配合 Await 等待。
func (c *Controller) Start(ctx context.Context) {
	c.EnsureGenres(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.Movies.IsIdle() {
		c.reloadLocked()
	}
}

// EnsureGenres 在类型列表尚未成功加载时同步拉取一次。
func (c *Controller) EnsureGenres(ctx context.Context) {
	c.mu.Lock()
	if c.st.Genres.IsLoaded() || c.st.Genres.IsLoading() {
		c.mu.Unlock()
		return
	}
	c.st.Genres = domain.Loading[[]domain.Genre]()
	c.mu.Unlock()

	genres, err := c.api.Genres(ctx)

	c.mu.Lock()
	c.st.Genres = domain.Settle(genres, err)
	c.mu.Unlock()
}

// LookupGenre 在已加载的类型列表里按 ID 查找。
func (c *Controller) LookupGenre(id int) (domain.Genre, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.st.Genres.Data {
		if g.ID == id {
			return g, true
		}
	}
	return domain.Genre{}, false
}

// SelectFilter 切换分类筛选，同时清除 genre 与 actor。
func (c *Controller) SelectFilter(f Filter) {
	c.apply(FilterSelection(f), nil)
}

// SelectGenre 选择类型，同时清除 actor 与筛选项。
func (c *Controller) SelectGenre(g domain.Genre) {
	c.apply(GenreSelection(g), nil)
}

// SelectActor 选择演员，同时清除 genre 与筛选项，并收起演员搜索。
func (c *Controller) SelectActor(p domain.Person) {
	c.apply(ActorSelection(p), func() {
		c.st.ActorQuery = ""
		c.st.ActorSearchOpen = false
		c.st.Suggestions = domain.Loaded([]domain.Person{})
		c.suggestTok.Next()
	})
}

// Clear 回到默认的 popular 筛选。
func (c *Controller) Clear() {
	c.apply(DefaultSelection(), nil)
}

// ToggleActorSearch 展开/收起演员搜索；展开时清空输入与候选。
// 两个方向都会作废尚在防抖中的输入。
func (c *Controller) ToggleActorSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.ActorSearchOpen = !c.st.ActorSearchOpen
	c.suggestTok.Next()
	if c.st.ActorSearchOpen {
		c.st.ActorQuery = ""
		c.st.Suggestions = domain.Loaded([]domain.Person{})
	}
}

// apply 在同一把锁内更新选择（以及 also 里的附带修改）并按需重新拉取。
func (c *Controller) apply(sel Selection, also func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if also != nil {
		also()
	}

	// 与当前选择相同且已有数据（或正在加载）时不重复拉取；失败过则允许重试。
	if c.st.Selection.Same(sel) && (c.st.Movies.IsLoaded() || c.st.Movies.IsLoading()) {
		return
	}
	c.st.Selection = sel
	c.reloadLocked()
}

// reloadLocked 签发新令牌并异步拉取当前选择对应的电影。调用方必须持有 c.mu。
func (c *Controller) reloadLocked() {
	tok := c.moviesTok.Next()
	sel := c.st.Selection
	c.st.Movies = domain.Loading[[]domain.Movie]()
	c.st.Token = tok

	done := make(chan struct{})
	c.settled = done

	if err := c.ctx.Err(); err != nil {
		// 已 Close：不再启动后台拉取。
		c.st.Movies = domain.Errored[[]domain.Movie](err)
		close(done)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)

		movies, err := c.load(c.ctx, sel)

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.moviesTok.Valid(tok) {
			c.log.Debug("discard stale result", zap.Uint64("token", uint64(tok)), zap.Uint64("current", uint64(c.moviesTok.Current())))
			return
		}
		if err != nil {
			c.log.Warn("加载电影失败", zap.String("heading", sel.Heading()), zap.Error(err))
		}
		c.st.Movies = domain.Settle(movies, err)
	}()
}

func (c *Controller) load(ctx context.Context, sel Selection) ([]domain.Movie, error) {
	switch sel.Mode {
	case ModeGenre:
		return c.api.MoviesByGenre(ctx, sel.Genre.ID)
	case ModeActor:
		return c.api.MoviesByActor(ctx, sel.Actor.ID)
	}
	switch sel.Filter {
	case FilterTopRated:
		return c.api.TopRated(ctx)
	case FilterTrending:
		return c.api.Trending(ctx)
	default:
		return c.api.Popular(ctx)
	}
}

// Await 阻塞到当前令牌对应的拉取完成，或 ctx 结束。
func (c *Controller) Await(ctx context.Context) error {
	c.mu.Lock()
	done := c.settled
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TypeActorQuery 记录一次输入并防抖。被后续输入取代时返回 ErrSuperseded（不发请求）；
// 静默期结束后：去空白后不足 ActorMinChars 个字符时清空候选且不发请求，否则搜索一次。
//
// 令牌在进入防抖前签发：静默期内发生的 SelectActor/ToggleActorSearch 同样会让本次输入作废。
func (c *Controller) TypeActorQuery(ctx context.Context, q string) ([]domain.Person, error) {
	c.mu.Lock()
	c.st.ActorQuery = q
	tok := c.suggestTok.Next()
	c.mu.Unlock()

	if err := c.deb.Wait(ctx); err != nil {
		return nil, err
	}

	q = strings.TrimSpace(q)
	short := utf8.RuneCountInString(q) < c.minChars

	c.mu.Lock()
	if !c.suggestTok.Valid(tok) {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	if short {
		c.st.Suggestions = domain.Loaded([]domain.Person{})
		c.mu.Unlock()
		return []domain.Person{}, nil
	}
	c.st.Suggestions = domain.Loading[[]domain.Person]()
	c.mu.Unlock()

	people, err := c.api.SearchPeople(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.suggestTok.Valid(tok) {
		return nil, ErrSuperseded
	}
	if err != nil && errors.Is(err, context.Canceled) {
		// 调用方走了：不把取消当成搜索失败展示。
		c.st.Suggestions = domain.Loaded([]domain.Person{})
		return nil, err
	}
	c.st.Suggestions = domain.Settle(people, err)
	return people, err
}

// Close 取消在途请求并等待后台 goroutine 退出。可重复调用。
func (c *Controller) Close() {
	// 持锁取消：与 reloadLocked 的“检查 ctx + wg.Add”互斥。
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}
