package discover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAPI 记录调用；gates 中的 key 存在时，对应调用会阻塞到通道关闭。
type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	queries []string
	gates   map[string]chan struct{}
	fail    map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

func (f *fakeAPI) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeAPI) record(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	g := f.gates[key]
	err := f.fail[key]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func movies(id int) []domain.Movie { return []domain.Movie{{ID: id}} }

func (f *fakeAPI) Popular(ctx context.Context) ([]domain.Movie, error) {
	return movies(1), f.record(ctx, "popular")
}
func (f *fakeAPI) TopRated(ctx context.Context) ([]domain.Movie, error) {
	return movies(2), f.record(ctx, "top_rated")
}
func (f *fakeAPI) Trending(ctx context.Context) ([]domain.Movie, error) {
	return movies(3), f.record(ctx, "trending")
}
func (f *fakeAPI) Genres(ctx context.Context) ([]domain.Genre, error) {
	return []domain.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}}, f.record(ctx, "genres")
}
func (f *fakeAPI) MoviesByGenre(ctx context.Context, id int) ([]domain.Movie, error) {
	return movies(1000 + id), f.record(ctx, "genre")
}
func (f *fakeAPI) MoviesByActor(ctx context.Context, id int) ([]domain.Movie, error) {
	return movies(2000 + id), f.record(ctx, "actor")
}
func (f *fakeAPI) SearchPeople(ctx context.Context, q string) ([]domain.Person, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return []domain.Person{{ID: 31, Name: "Tom Hanks"}}, f.record(ctx, "people")
}

func newController(t *testing.T, api API, debounce time.Duration) *Controller {
	t.Helper()
	c := New(api, Options{Debounce: debounce})
	t.Cleanup(c.Close)
	return c
}

func await(t *testing.T, c *Controller) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Await(ctx))
	return c.Snapshot()
}

func TestController_StartLoadsGenresAndPopular(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 10*time.Millisecond)

	c.Start(context.Background())
	st := await(t, c)

	assert.True(t, st.Genres.IsLoaded())
	assert.Len(t, st.Genres.Data, 2)
	assert.True(t, st.Movies.IsLoaded())
	assert.Equal(t, 1, st.Movies.Data[0].ID)
	assert.Equal(t, "Popular Movies", st.Selection.Heading())

	// 再次 Start 不重复拉取。
	c.Start(context.Background())
	await(t, c)
	assert.Equal(t, 1, api.callCount("genres"))
	assert.Equal(t, 1, api.callCount("popular"))
}

func TestController_SelectionExclusivity(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 10*time.Millisecond)
	c.Start(context.Background())
	await(t, c)

	c.SelectActor(domain.Person{ID: 31, Name: "Tom Hanks"})
	st := await(t, c)
	assert.Equal(t, ModeActor, st.Selection.Mode)
	assert.Equal(t, "Movies with Tom Hanks", st.Selection.Heading())
	_, hasFilter := st.Selection.ActiveFilter()
	assert.False(t, hasFilter, "选择演员后不应有生效的筛选项")
	assert.Equal(t, 2031, st.Movies.Data[0].ID)

	// genre 覆盖 actor。
	g, ok := c.LookupGenre(35)
	require.True(t, ok)
	c.SelectGenre(g)
	st = await(t, c)
	assert.Equal(t, ModeGenre, st.Selection.Mode)
	assert.Zero(t, st.Selection.Actor.ID, "选择类型后应清除演员")
	assert.Equal(t, "Comedy Movies", st.Selection.Heading())
	assert.Equal(t, 1035, st.Movies.Data[0].ID)

	// actor 覆盖 genre。
	c.SelectActor(domain.Person{ID: 5, Name: "X"})
	st = await(t, c)
	assert.Zero(t, st.Selection.Genre.ID, "选择演员后应清除类型")

	// 筛选项清除二者。
	c.SelectFilter(FilterTopRated)
	st = await(t, c)
	assert.Equal(t, ModeFilter, st.Selection.Mode)
	assert.Zero(t, st.Selection.Genre.ID)
	assert.Zero(t, st.Selection.Actor.ID)
	assert.Equal(t, "Top Rated Movies", st.Selection.Heading())
	assert.Equal(t, 2, st.Movies.Data[0].ID)

	c.SelectGenre(domain.Genre{ID: 28, Name: "Action"})
	await(t, c)
	c.Clear()
	st = await(t, c)
	assert.Equal(t, DefaultSelection(), st.Selection)
	assert.False(t, st.Selection.HasGenreOrActor())
}

func TestController_SameSelectionDoesNotRefetch(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 10*time.Millisecond)
	c.Start(context.Background())
	await(t, c)

	c.SelectFilter(FilterPopular)
	await(t, c)
	assert.Equal(t, 1, api.callCount("popular"))

	// 失败后允许用同一选择重试。
	api.mu.Lock()
	api.fail["trending"] = errors.New("boom")
	api.mu.Unlock()
	c.SelectFilter(FilterTrending)
	st := await(t, c)
	assert.True(t, st.Movies.IsErrored())
	assert.Empty(t, st.Movies.Data)

	api.mu.Lock()
	delete(api.fail, "trending")
	api.mu.Unlock()
	c.SelectFilter(FilterTrending)
	st = await(t, c)
	assert.True(t, st.Movies.IsLoaded())
	assert.Equal(t, 2, api.callCount("trending"))
}

func TestController_StaleResultDiscarded(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 10*time.Millisecond)
	c.Start(context.Background())
	await(t, c)

	slow := api.gate("genre")
	c.SelectGenre(domain.Genre{ID: 28, Name: "Action"})
	staleTok := c.Snapshot().Token

	c.SelectActor(domain.Person{ID: 31, Name: "Tom Hanks"})
	st := await(t, c)
	require.True(t, st.Movies.IsLoaded())
	assert.Equal(t, 2031, st.Movies.Data[0].ID)
	assert.Greater(t, st.Token, staleTok)

	// 过期的 genre 结果晚到，不应覆盖新状态。
	close(slow)
	require.Eventually(t, func() bool { return api.callCount("genre") == 1 }, time.Second, 5*time.Millisecond)
	c.Close()
	st = c.Snapshot()
	assert.Equal(t, ModeActor, st.Selection.Mode)
	assert.Equal(t, 2031, st.Movies.Data[0].ID)
}

func TestController_AwaitWhileLoading(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 10*time.Millisecond)
	gate := api.gate("popular")
	c.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Await(ctx), context.DeadlineExceeded)
	assert.True(t, c.Snapshot().Movies.IsLoading())

	close(gate)
	assert.True(t, await(t, c).Movies.IsLoaded())
}

func TestController_ActorSearchDebounced(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 60*time.Millisecond)

	inputs := []string{"t", "to", "tom", "tom ", "tom h"}
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, q := range inputs {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			_, errs[i] = c.TypeActorQuery(context.Background(), q)
		}(i, q)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	for i := 0; i < len(inputs)-1; i++ {
		assert.ErrorIs(t, errs[i], ErrSuperseded, "input=%q", inputs[i])
	}
	assert.NoError(t, errs[len(inputs)-1])

	api.mu.Lock()
	queries := append([]string(nil), api.queries...)
	api.mu.Unlock()
	assert.Equal(t, []string{"tom h"}, queries, "连续输入最多触发一次搜索，且针对最后一次输入")

	st := c.Snapshot()
	assert.Equal(t, "tom h", st.ActorQuery)
	assert.True(t, st.Suggestions.IsLoaded())
	assert.Len(t, st.Suggestions.Data, 1)
}

func TestController_ShortQueryClearsSuggestionsWithoutRequest(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 5*time.Millisecond)

	_, err := c.TypeActorQuery(context.Background(), "tom")
	require.NoError(t, err)
	require.Len(t, c.Snapshot().Suggestions.Data, 1)

	got, err := c.TypeActorQuery(context.Background(), "to")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, c.Snapshot().Suggestions.Data, "短查询应清空旧候选")

	_, err = c.TypeActorQuery(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("people"), "短查询不应发请求")
}

func TestController_SelectActorResetsSearch(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 5*time.Millisecond)

	c.ToggleActorSearch()
	assert.True(t, c.Snapshot().ActorSearchOpen)
	_, err := c.TypeActorQuery(context.Background(), "tom hanks")
	require.NoError(t, err)

	c.SelectActor(domain.Person{ID: 31, Name: "Tom Hanks"})
	st := await(t, c)
	assert.False(t, st.ActorSearchOpen)
	assert.Empty(t, st.ActorQuery)
	assert.Empty(t, st.Suggestions.Data)

	c.ToggleActorSearch()
	c.ToggleActorSearch()
	assert.False(t, c.Snapshot().ActorSearchOpen)
}

func TestController_SelectActorCancelsPendingQuery(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 50*time.Millisecond)

	c.ToggleActorSearch()
	errc := make(chan error, 1)
	go func() {
		_, err := c.TypeActorQuery(context.Background(), "tom")
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	c.SelectActor(domain.Person{ID: 31, Name: "Tom Hanks"})

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("TypeActorQuery 未返回")
	}
	st := await(t, c)
	assert.Equal(t, 0, api.callCount("people"), "选中演员后不应再搜索")
	assert.False(t, st.ActorSearchOpen)
	assert.Empty(t, st.ActorQuery)
	assert.Empty(t, st.Suggestions.Data)
}

func TestController_ClosingPanelCancelsPendingQuery(t *testing.T) {
	api := newFakeAPI()
	c := newController(t, api, 50*time.Millisecond)

	c.ToggleActorSearch()
	errc := make(chan error, 1)
	go func() {
		_, err := c.TypeActorQuery(context.Background(), "tom hanks")
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	c.ToggleActorSearch()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("TypeActorQuery 未返回")
	}
	assert.Equal(t, 0, api.callCount("people"))
	assert.Empty(t, c.Snapshot().Suggestions.Data)
}

func TestController_CloseStopsInflight(t *testing.T) {
	api := newFakeAPI()
	c := New(api, Options{})
	api.gate("popular")
	c.Start(context.Background())
	c.Close()

	st := c.Snapshot()
	assert.True(t, st.Movies.IsLoading() || st.Movies.IsErrored())

	// Close 之后的选择不再启动后台拉取。
	c.SelectFilter(FilterTrending)
	assert.True(t, c.Snapshot().Movies.IsErrored())
	assert.Equal(t, 0, api.callCount("trending"))
}

func TestParseFilter(t *testing.T) {
	f, ok := ParseFilter("top_rated")
	assert.True(t, ok)
	assert.Equal(t, FilterTopRated, f)

	f, ok = ParseFilter("bogus")
	assert.False(t, ok)
	assert.Equal(t, FilterPopular, f)
	assert.Equal(t, "Popular Movies", FilterSelection("bogus").Heading())
	assert.Equal(t, "Trending", FilterTrending.Label())
}
