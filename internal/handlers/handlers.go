// Package handlers serves subscribers over HTTP and through the Telegram bot.
package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"newsbot/internal/models"
	"newsbot/internal/paging"
)

// Pager serves numbered pages of stored articles.
type Pager interface {
	GetPage(ctx context.Context, number, size int) (paging.Page, error)
}

// RecentArticles returns the newest stored articles, newest first.
type RecentArticles interface {
	Recent(ctx context.Context, limit int) ([]models.Article, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	articles        RecentArticles
	pages           Pager
	db              Pinger
	baseURL         string
	defaultPageSize int
}

func New(articles RecentArticles, pages Pager, db Pinger, baseURL string, defaultPageSize int) *Handlers {
	if defaultPageSize < 1 {
		defaultPageSize = 1
	}
	return &Handlers{
		articles:        articles,
		pages:           pages,
		db:              db,
		baseURL:         baseURL,
		defaultPageSize: defaultPageSize,
	}
}

// Router wires the public routes. auth and limit wrap the subscriber API.
func (h *Handlers) Router(auth, limit mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/rss", h.GetRSSFeed).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth, limit)
	api.HandleFunc("/news", h.GetNews).Methods(http.MethodGet)
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
