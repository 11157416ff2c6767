package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"newsbot/internal/metrics"
	"newsbot/internal/models"
	"newsbot/internal/paging"
)

const maxPageSize = 100

type articleJSON struct {
	ID          string `json:"id"`
	PublishedAt string `json:"published_at"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	URL         string `json:"url"`
}

type newsResponse struct {
	Items      []articleJSON `json:"items"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

func toJSON(a models.Article) articleJSON {
	return articleJSON{
		ID:          a.ID,
		PublishedAt: a.PublishedAt.Format(time.RFC3339),
		Category:    a.Category,
		Title:       a.Title,
		URL:         a.URL,
	}
}

// GetNews serves GET /api/news?page=&size=, oldest article first.
func (h *Handlers) GetNews(w http.ResponseWriter, r *http.Request) {
	number, err := queryInt(r, "page", 1)
	if err != nil {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	size, err := queryInt(r, "size", h.defaultPageSize)
	if err != nil || size > maxPageSize {
		http.Error(w, "Invalid size", http.StatusBadRequest)
		return
	}

	metrics.PageRequestsTotal.WithLabelValues(metrics.ChannelHTTP).Inc()
	page, err := h.pages.GetPage(r.Context(), number, size)
	if errors.Is(err, paging.ErrInvalidPage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("Error getting page %d: %v", number, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := newsResponse{
		Items:      make([]articleJSON, 0, len(page.Items)),
		Page:       page.Number,
		Size:       page.Size,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}
	for _, a := range page.Items {
		resp.Items = append(resp.Items, toJSON(a))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Error encoding news response: %v", err)
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
