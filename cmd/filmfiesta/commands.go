package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/config"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/infra/httpx"
	"github.com/John-Robertt/filmfiesta/internal/infra/kv"
	"github.com/John-Robertt/filmfiesta/internal/review"
	"github.com/John-Robertt/filmfiesta/internal/tmdb"
	"github.com/John-Robertt/filmfiesta/internal/web"
)

// gateway 按生效配置构造远端 client（限速 + 有界重试 + 超时）。
func (a *app) gateway() (*tmdb.Client, error) {
	if err := a.eff.RequireAPIKey(); err != nil {
		return nil, err
	}
	retry := a.eff.RetryMax
	hc, err := httpx.NewAPIClient(httpx.Options{
		ProxyURL: a.eff.ProxyURL,
		Timeout:  a.eff.Timeout,
		RetryMax: &retry,
		RPS:      a.eff.RPS,
		Burst:    a.eff.Burst,
	})
	if err != nil {
		return nil, err
	}
	return tmdb.New(tmdb.Options{
		BaseURL:    a.eff.APIBaseURL,
		APIKey:     a.eff.APIKey,
		HTTPClient: hc,
		Logger:     a.log,
	}), nil
}

func (a *app) reviews(ctx context.Context, readOnly bool) (*review.Store, kv.Store, error) {
	backend, err := kv.Open(ctx, a.eff.StorageDriver, a.eff.DataDir, a.eff.StorageDSN, readOnly)
	if err != nil {
		return nil, nil, err
	}
	return review.NewStore(backend, review.WithLogger(a.log)), backend, nil
}

func (a *app) images() tmdb.Resolver {
	return tmdb.Resolver{Base: a.eff.ImageBaseURL}
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动本地 Web 前端",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := a.gateway()
			if err != nil {
				return err
			}
			store, backend, err := a.reviews(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer backend.Close()

			srv, err := web.New(web.Options{
				Gateway:       gw,
				Reviews:       store,
				Images:        a.images(),
				Logger:        a.log,
				RenderWait:    a.eff.RenderWait,
				Debounce:      a.eff.Debounce,
				ActorMinChars: a.eff.ActorMinChars,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(a.stderr, "FilmFiesta: http://%s\n", a.eff.Addr)
			return srv.Serve(ctx, a.eff.Addr)
		},
	}
	cmd.Flags().StringVar(&a.addr, "addr", "", "监听地址（默认 "+config.DefaultAddr+"，或读取 "+config.EnvAddr+"）")
	return cmd
}

// movieRow 是 list/search 的输出行。
type movieRow struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	PosterURL   string  `json:"poster_url"`
	ReleaseDate string  `json:"release_date,omitempty"`
}

func (a *app) emitMovies(movies []domain.Movie) error {
	img := a.images()
	rows := make([]movieRow, 0, len(movies))
	for _, m := range movies {
		rows = append(rows, movieRow{
			ID:          m.ID,
			Title:       m.Title,
			Year:        m.Year(),
			Rating:      m.Rating(),
			PosterURL:   img.URL(m.PosterPath, tmdb.SizeW500),
			ReleaseDate: m.ReleaseDate,
		})
	}
	return a.emit(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No movies found.")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%8d  %-50s %4s  %s\n", r.ID, r.Title, yearText(r.Year), ratingText(r.Rating))
		}
	})
}

func yearText(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}

func ratingText(r float64) string {
	if r == 0 {
		return ""
	}
	return strconv.FormatFloat(r, 'f', -1, 64) + " ★"
}

func newListCmd(a *app) *cobra.Command {
	names := make([]string, 0, len(discover.Filters))
	for _, f := range discover.Filters {
		names = append(names, string(f))
	}
	return &cobra.Command{
		Use:       "list <" + strings.Join(names, "|") + ">",
		Short:     "列出某个分类的电影",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := discover.ParseFilter(args[0])
			if !ok {
				return fmt.Errorf("未知分类 %q（可选：%s）", args[0], strings.Join(names, ", "))
			}
			gw, err := a.gateway()
			if err != nil {
				return err
			}
			var movies []domain.Movie
			switch f {
			case discover.FilterTrending:
				movies, err = gw.Trending(cmd.Context())
			case discover.FilterTopRated:
				movies, err = gw.TopRated(cmd.Context())
			default:
				movies, err = gw.Popular(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.emitMovies(movies)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "按片名搜索电影",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.TrimSpace(strings.Join(args, " "))
			if q == "" {
				return fmt.Errorf("查询不能为空")
			}
			gw, err := a.gateway()
			if err != nil {
				return err
			}
			movies, err := gw.SearchMovies(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.emitMovies(movies)
		},
	}
}

func newReviewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "查看或添加本地评论",
	}

	list := &cobra.Command{
		Use:   "list <movieID>",
		Short: "列出某部电影的本地评论",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			store, backend, err := a.reviews(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer backend.Close()

			reviews, err := store.List(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(reviews, func(w io.Writer) {
				fmt.Fprintf(w, "Reviews (%d)\n", len(reviews))
				if len(reviews) == 0 {
					fmt.Fprintln(w, "No reviews yet. Be the first to review this movie!")
				}
				for _, r := range reviews {
					fmt.Fprintf(w, "%2d/10  %s  %s\n", r.Rating, r.Date.Format("Jan 2, 2006"), r.Comment)
				}
			})
		},
	}

	var (
		rating  int
		comment string
	)
	add := &cobra.Command{
		Use:   "add <movieID>",
		Short: "为某部电影添加一条本地评论",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMovieID(args[0])
			if err != nil {
				return err
			}
			store, backend, err := a.reviews(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer backend.Close()

			r, err := store.Submit(cmd.Context(), id, rating, comment)
			if err != nil {
				return err
			}
			a.log.Debug("评论已添加", zap.Int("movie_id", id), zap.Int64("review_id", r.ID))
			return a.emit(r, func(w io.Writer) {
				fmt.Fprintln(w, "Your review has been added!")
			})
		},
	}
	add.Flags().IntVar(&rating, "rating", 0, "评分 1-10（必填）")
	add.Flags().StringVar(&comment, "comment", "", "评论内容（可选）")

	cmd.AddCommand(list, add)
	return cmd
}

func parseMovieID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("movieID 必须是正整数，实际是 %q", s)
	}
	return id, nil
}
