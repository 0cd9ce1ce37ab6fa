package web

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/John-Robertt/filmfiesta/internal/web/views"
)

func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(s.notFoundHandler)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowedHandler)

	router.HandlerFunc(http.MethodGet, "/healthz", s.healthzHandler)
	router.Handler(http.MethodGet, "/static/*filepath", views.Static())

	router.HandlerFunc(http.MethodGet, "/", s.homeHandler)
	router.HandlerFunc(http.MethodGet, "/discover", s.discoverHandler)
	router.HandlerFunc(http.MethodGet, "/discover/actors", s.actorSuggestionsHandler)
	router.HandlerFunc(http.MethodGet, "/search", s.searchHandler)
	router.HandlerFunc(http.MethodGet, "/movie/:id", s.movieHandler)
	router.HandlerFunc(http.MethodPost, "/movie/:id/reviews", s.submitReviewHandler)

	return s.recoverPanic(s.accessLog(s.withSession(router)))
}
