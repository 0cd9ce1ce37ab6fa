package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/John-Robertt/filmfiesta/internal/app/discover"
	"github.com/John-Robertt/filmfiesta/internal/app/pages"
	"github.com/John-Robertt/filmfiesta/internal/domain"
	"github.com/John-Robertt/filmfiesta/internal/web/views"
)

func (s *Server) page(w http.ResponseWriter, r *http.Request, status int, name string, p views.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	var buf strings.Builder
	if err := s.render.Page(&buf, name, p); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// newPage 组装外壳，并把会话里待展示的提示与本次提示合并。
func (s *Server) newPage(r *http.Request, title, query string, notices []pages.Notice, content any) views.Page {
	all := append(sessionFrom(r).TakeFlashes(), notices...)
	return views.NewPage(title, r.URL.Path, query, s.opts.Now(), all, content)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("处理请求失败", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusNotFound, views.PageNotFound, s.newPage(r, "Not Found", "", nil, views.NewNotFound(r.URL.Path)))
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "available"})
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	v := s.home.Load(r.Context())
	s.page(w, r, http.StatusOK, views.PageHome, s.newPage(r, "", "", v.Notices, s.build.Home(v)))
}

// searchHandler：表单提交（go=1）时，空白输入不跳转，回到来源页。
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("go") != "" {
		target, ok := pages.SearchTarget(q.Get("q"))
		if !ok {
			target = backTarget(r)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	v := s.search.Load(r.Context(), q.Get("q"))
	s.page(w, r, http.StatusOK, views.PageSearch, s.newPage(r, "Search", v.Query, v.Notices, s.build.Search(v)))
}

// backTarget 只接受同站的来源路径，否则回首页。
func backTarget(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/"
	}
	host := "//" + r.Host
	if i := strings.Index(ref, host); i >= 0 {
		if p := ref[i+len(host):]; strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") {
			return p
		}
	}
	return "/"
}

// discoverHandler：带动作参数的请求先更新会话状态再重定向回 /discover（PRG），
// 普通请求等待当前拉取（最多 RenderWait）后渲染。
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	ctrl := sessionFrom(r).Discover(s.newDiscover)
	ctrl.Start(r.Context())

	if applyDiscoverAction(ctrl, r) {
		http.Redirect(w, r, "/discover", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RenderWait)
	defer cancel()
	_ = ctrl.Await(ctx)

	st := ctrl.Snapshot()
	var notices []pages.Notice
	if st.Movies.IsErrored() {
		notices = append(notices, pages.Notice{Kind: pages.NoticeError, Text: pages.MsgLoadMoviesFailed})
	}
	p := s.newPage(r, "Discover", "", notices, s.build.Discover(st))
	if st.Movies.IsLoading() {
		p.Refresh = 1
	}
	s.page(w, r, http.StatusOK, views.PageDiscover, p)
}

// applyDiscoverAction 返回是否识别到动作参数。
func applyDiscoverAction(ctrl *discover.Controller, r *http.Request) bool {
	q := r.URL.Query()
	switch {
	case q.Has("clear"):
		ctrl.Clear()
	case q.Has("filter"):
		f, _ := discover.ParseFilter(q.Get("filter"))
		ctrl.SelectFilter(f)
	case q.Has("genre"):
		id, err := strconv.Atoi(q.Get("genre"))
		if err != nil {
			return true
		}
		if g, ok := ctrl.LookupGenre(id); ok {
			ctrl.SelectGenre(g)
		}
	case q.Has("actor"):
		id, err := strconv.Atoi(q.Get("actor"))
		if err != nil {
			return true
		}
		ctrl.SelectActor(domain.Person{ID: id, Name: q.Get("actor_name"), ProfilePath: q.Get("actor_profile")})
	case q.Has("actor_search"):
		ctrl.ToggleActorSearch()
	default:
		return false
	}
	return true
}

// actorSuggestionsHandler 每次按键调用一次；被后续输入取代的调用返回 204。
func (s *Server) actorSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	ctrl := sessionFrom(r).Discover(s.newDiscover)

	_, err := ctrl.TypeActorQuery(r.Context(), r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, discover.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, context.Canceled):
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	var buf strings.Builder
	if err := s.render.Fragment(&buf, "actors", s.build.Suggestions(ctrl.Snapshot().Suggestions)); err != nil {
		s.serverError(w, r, err)
		return
	}
	_, _ = w.Write([]byte(buf.String()))
}

func movieID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(httprouter.ParamsFromContext(r.Context()).ByName("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) movieHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(r)
	if !ok {
		s.notFoundHandler(w, r)
		return
	}
	v := s.details.Load(r.Context(), id)

	title := "Movie Not Found"
	status := http.StatusOK
	if v.NotFound() {
		status = http.StatusNotFound
	} else {
		title = v.Movie.Title
	}
	s.page(w, r, status, views.PageDetails, s.newPage(r, title, "", v.Notices, s.build.Details(v)))
}

// submitReviewHandler 提交后重定向回详情页（PRG），提示通过会话带过去。
func (s *Server) submitReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(r)
	if !ok {
		s.notFoundHandler(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	// 未选择评分（或无法解析）按 0 处理，由校验给出提示。
	rating, _ := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("rating")))

	notice, err := s.details.SubmitReview(r.Context(), id, rating, r.PostForm.Get("comment"))
	if err != nil {
		s.log.Debug("评论未保存", zap.Int("movie_id", id), zap.Error(err))
	}
	sessionFrom(r).Flash(notice)
	http.Redirect(w, r, views.MovieHref(id)+"#reviews", http.StatusSeeOther)
}
