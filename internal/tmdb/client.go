package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/filmfiesta/internal/domain"
)

const BaseURL = "https://api.themoviedb.org/3"

// 响应体上限：列表/详情 JSON 远小于该值，超过即视为异常响应。
const maxBodyBytes = 8 << 20

// Client 是远端电影元数据服务的 gateway：每种资源一个操作，每个操作一次 GET。
//
// 约束：
// - 任何网络/状态码/解析失败都会被记录日志，并返回空列表（详情返回 nil）+ *Error
// - 相同 URL 的并发请求合并为一次（singleflight）
// - 不做缓存；限速/重试由 httpx.Transport 统一实现
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	log     *zap.Logger

	group singleflight.Group
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func New(o Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		base = BaseURL
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		apiKey:  o.APIKey,
		hc:      hc,
		log:     log.Named("tmdb"),
	}
}

func (c *Client) Trending(ctx context.Context) ([]domain.Movie, error) {
	return c.movies(ctx, "trending", "/trending/movie/day", nil)
}

func (c *Client) Popular(ctx context.Context) ([]domain.Movie, error) {
	return c.movies(ctx, "popular", "/movie/popular", nil)
}

func (c *Client) TopRated(ctx context.Context) ([]domain.Movie, error) {
	return c.movies(ctx, "top_rated", "/movie/top_rated", nil)
}

// SearchMovies 按片名搜索；空查询不发请求。
func (c *Client) SearchMovies(ctx context.Context, query string) ([]domain.Movie, error) {
	if query == "" {
		return []domain.Movie{}, nil
	}
	params := url.Values{}
	params.Set("query", query)
	return c.movies(ctx, "search_movies", "/search/movie", params)
}

// SearchPeople 按人名搜索；空查询不发请求。
func (c *Client) SearchPeople(ctx context.Context, query string) ([]domain.Person, error) {
	if query == "" {
		return []domain.Person{}, nil
	}
	params := url.Values{}
	params.Set("query", query)

	var page struct {
		Results []domain.Person `json:"results"`
	}
	if err := c.get(ctx, "search_people", "/search/person", params, &page); err != nil {
		return []domain.Person{}, err
	}
	if page.Results == nil {
		return []domain.Person{}, nil
	}
	return page.Results, nil
}

// MovieDetails 一次请求拿到详情 + credits + videos + similar。
// 失败返回 nil；远端 404 时 errors.Is(err, ErrNotFound) 为 true。
func (c *Client) MovieDetails(ctx context.Context, id int) (*domain.Movie, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,similar")

	var m domain.Movie
	if err := c.get(ctx, "movie_details", "/movie/"+strconv.Itoa(id), params, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	var resp struct {
		Genres []domain.Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &resp); err != nil {
		return []domain.Genre{}, err
	}
	if resp.Genres == nil {
		return []domain.Genre{}, nil
	}
	return resp.Genres, nil
}

func (c *Client) MoviesByGenre(ctx context.Context, genreID int) ([]domain.Movie, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("sort_by", "popularity.desc")
	return c.movies(ctx, "movies_by_genre", "/discover/movie", params)
}

func (c *Client) MoviesByActor(ctx context.Context, personID int) ([]domain.Movie, error) {
	params := url.Values{}
	params.Set("with_cast", strconv.Itoa(personID))
	params.Set("sort_by", "popularity.desc")
	return c.movies(ctx, "movies_by_actor", "/discover/movie", params)
}

func (c *Client) movies(ctx context.Context, op, endpoint string, params url.Values) ([]domain.Movie, error) {
	var page domain.MoviePage
	if err := c.get(ctx, op, endpoint, params, &page); err != nil {
		return []domain.Movie{}, err
	}
	if page.Results == nil {
		return []domain.Movie{}, nil
	}
	return page.Results, nil
}

// get 发出请求并把 JSON 解析进 dest；失败时记录日志并返回 *Error。
func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values, dest any) error {
	body, err := c.fetch(ctx, endpoint, params)
	if err == nil {
		if uerr := json.Unmarshal(body, dest); uerr != nil {
			err = fmt.Errorf("解析 JSON 失败：%w", uerr)
		}
	}
	if err != nil {
		c.log.Warn("请求失败",
			zap.String("op", op),
			zap.String("path", endpoint),
			zap.Error(err),
		)
		return &Error{Op: op, Err: err}
	}
	return nil
}

// fetch 返回响应体。相同 URL 的并发调用共享同一次请求；
// 共享请求不随单个调用方的 ctx 取消，调用方自己的 ctx 只决定它是否继续等待。
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	key := endpoint + "?" + q.Encode()

	ch := c.group.DoChan(key, func() (any, error) {
		return c.do(context.WithoutCancel(ctx), endpoint, q)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	// 日志里只出现脱敏后的 URL。
	c.log.Debug("request", zap.String("url", c.baseURL+endpoint+"?"+q.Encode()+"&api_key=***"))

	full := url.Values{}
	for k, v := range q {
		full[k] = v
	}
	full.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+full.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, redact(err, c.apiKey)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, redact(fmt.Errorf("读取响应失败：%w", err), c.apiKey)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{Path: endpoint, StatusCode: resp.StatusCode}
	}
	c.log.Debug("response", zap.String("path", endpoint), zap.Int("bytes", len(body)))
	return body, nil
}

// redactedError 保留错误链，但把 api_key 从消息中抹掉（*url.Error 会带上完整 URL）。
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, key string) error {
	if err == nil || key == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, key, "***"), err: errors.Unwrap(err)}
}
