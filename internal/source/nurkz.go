// Package source scrapes candidate articles from the nur.kz "latest" page.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"newsbot/internal/models"
)

// ErrSourceUnavailable is returned when the upstream page cannot be fetched
// or parsed. It is transient: the next scheduled fetch tries again.
var ErrSourceUnavailable = errors.New("source unavailable")

const (
	DefaultURL = "https://www.nur.kz/latest/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	cardSelector     = "a.article-preview-category__content"
	categorySelector = ".article-preview-category__text"
	titleSelector    = ".article-preview-category__subhead"
)

// NurKz fetches the latest-news listing and turns every article card into a
// candidate.
type NurKz struct {
	pageURL string
	client  *http.Client
}

func NewNurKz(pageURL string, timeout time.Duration) *NurKz {
	if pageURL == "" {
		pageURL = DefaultURL
	}
	return &NurKz{
		pageURL: pageURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the listing page and returns the candidates in page order.
func (s *NurKz) Fetch(ctx context.Context) ([]models.Candidate, error) {
	base, err := url.Parse(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid page url %q: %w", ErrSourceUnavailable, s.pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrSourceUnavailable, resp.StatusCode, s.pageURL)
	}

	candidates, err := Parse(resp.Body, base)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Printf("No article cards found on %s, page layout may have changed", s.pageURL)
	}
	return candidates, nil
}

// Parse extracts candidates from a listing page. Relative links are resolved
// against base.
func Parse(r io.Reader, base *url.URL) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse page: %w", ErrSourceUnavailable, err)
	}

	var candidates []models.Candidate
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Attr("href")
		published, _ := card.Find("time").Attr("datetime")

		candidates = append(candidates, models.Candidate{
			URL:         resolve(base, strings.TrimSpace(href)),
			Category:    strings.TrimSpace(card.Find(categorySelector).First().Text()),
			Title:       strings.TrimSpace(card.Find(titleSelector).First().Text()),
			PublishedAt: strings.TrimSpace(published),
		})
	})
	return candidates, nil
}

func resolve(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
