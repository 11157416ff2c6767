package handlers

import (
	"log"
	"net/http"

	"newsbot/internal/feed"
)

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.Recent(r.Context(), feed.RecentLimit)
	if err != nil {
		log.Printf("Error getting recent articles: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.GenerateRSS(articles, h.baseURL)
	if err != nil {
		log.Printf("Error generating RSS: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}
