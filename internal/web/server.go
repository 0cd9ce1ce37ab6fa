// Package web 是浏览器前端：服务端渲染页面，每个浏览器会话持有自己的 Discover 状态。
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/app/pages"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/tmdb"
	"github.com/John-Robertt/filmfiesta/internal/web/views"
)

const (
	DefaultRenderWait = 3 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Gateway 是页面需要的全部远端能力（*tmdb.Client 满足该接口）。
type Gateway interface {
	discover.API
	SearchMovies(ctx context.Context, query string) ([]domain.Movie, error)
	MovieDetails(ctx context.Context, id int) (*domain.Movie, error)
}

var _ Gateway = (*tmdb.Client)(nil)

type Options struct {
	Gateway Gateway
	Reviews pages.ReviewStore
	Images  tmdb.Resolver
	Logger  *zap.Logger

	// RenderWait 是 Discover 页等待当前拉取完成的上限；超时则先渲染骨架屏并自动刷新。
	RenderWait    time.Duration
	Debounce      time.Duration
	ActorMinChars int
	SessionTTL    time.Duration

	// Now 与 Pick 供测试替换。
	Now  func() time.Time
	Pick func(n int) int
}

// Server 把页面控制器、视图与会话组装成 http.Handler。
type Server struct {
	opts     Options
	log      *zap.Logger
	home     *pages.Home
	search   *pages.Search
	details  *pages.Details
	render   *views.Renderer
	build    views.Builder
	sessions *sessions
}

func New(o Options) (*Server, error) {
	if o.Gateway == nil || o.Reviews == nil {
		return nil, errors.New("web: Gateway 与 Reviews 不能为空")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.RenderWait <= 0 {
		o.RenderWait = DefaultRenderWait
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	r, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}

	homeOpts := []pages.HomeOption{pages.WithHomeLogger(o.Logger)}
	if o.Pick != nil {
		homeOpts = append(homeOpts, pages.WithPicker(o.Pick))
	}

	s := &Server{
		opts:    o,
		log:     o.Logger,
		home:    pages.NewHome(o.Gateway, homeOpts...),
		search:  pages.NewSearch(o.Gateway),
		details: pages.NewDetails(o.Gateway, o.Reviews, o.Logger),
		render:  r,
		build:   views.Builder{Images: o.Images},
	}
	s.sessions = newSessions(o.SessionTTL, s.newDiscover, o.Logger.Named("session"))
	return s, nil
}

func (s *Server) newDiscover() *discover.Controller {
	return discover.New(s.opts.Gateway, discover.Options{
		Debounce:      s.opts.Debounce,
		ActorMinChars: s.opts.ActorMinChars,
		Logger:        s.log,
	})
}

// Serve 监听 addr 直到 ctx 结束，然后优雅关闭并释放全部会话。
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server", zap.String("addr", addr))
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		return s.sessions.Run(gctx)
	})

	err := g.Wait()
	s.Close()
	if err == nil {
		s.log.Info("stopped server", zap.String("addr", addr))
	}
	return err
}

// Close 释放全部会话（及其后台拉取）。
func (s *Server) Close() {
	s.sessions.Close()
}
